package extract

import (
	"slices"
	"strings"
)

// DefaultBulletPrefixes are the line markers treated as list items when an
// Extractor has none configured.
var DefaultBulletPrefixes = []string{"-", "*", "•", "1.", "2.", "3.", "4.", "5.", "6.", "7.", "8.", "9."}

// Extractor buckets bullet lines of a text under section labels.
//
// Each line is trimmed and then checked in order:
//   - a line containing a label (case-insensitive substring) switches the
//     current section; when several labels match, the first configured wins
//   - a line starting with a bullet prefix is appended to the current section
//   - anything else is ignored
//
// Bullets seen before any label are discarded. The zero Extractor has no
// labels and therefore extracts nothing.
type Extractor struct {
	// Labels are the section labels to recognise. Matching is
	// case-insensitive; results are keyed by the label as written here.
	Labels []string

	// BulletPrefixes mark list item lines. Nil uses DefaultBulletPrefixes.
	BulletPrefixes []string

	// StripMarkers removes the matched prefix and surrounding space from
	// each item. When false items keep their marker ("- item").
	StripMarkers bool
}

// Sections holds extracted items per label, with labels in the order they
// were first seen in the text.
type Sections struct {
	order []string
	items map[string][]string
}

// Items returns a copy of the items collected under label, or nil.
func (s Sections) Items(label string) []string {
	return slices.Clone(s.items[label])
}

// Labels returns the labels that appeared in the text, in order of first
// appearance.
func (s Sections) Labels() []string {
	return slices.Clone(s.order)
}

// Len returns the number of labels seen.
func (s Sections) Len() int {
	return len(s.order)
}

// Extract scans text line by line.
func (e Extractor) Extract(text string) Sections {
	out := Sections{items: make(map[string][]string)}
	lowered := make([]string, len(e.Labels))
	for i, l := range e.Labels {
		lowered[i] = strings.ToLower(l)
	}
	prefixes := e.BulletPrefixes
	if prefixes == nil {
		prefixes = DefaultBulletPrefixes
	}

	current := ""
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if idx := matchLabel(strings.ToLower(line), lowered); idx >= 0 {
			current = e.Labels[idx]
			if _, seen := out.items[current]; !seen {
				out.order = append(out.order, current)
				out.items[current] = nil
			}
			continue
		}

		if current == "" {
			continue
		}
		prefix, ok := bulletPrefix(line, prefixes)
		if !ok {
			continue
		}
		item := line
		if e.StripMarkers {
			item = strings.TrimSpace(strings.TrimPrefix(line, prefix))
			if item == "" {
				continue
			}
		}
		out.items[current] = append(out.items[current], item)
	}
	return out
}

func matchLabel(line string, labels []string) int {
	for i, l := range labels {
		if l != "" && strings.Contains(line, l) {
			return i
		}
	}
	return -1
}

func bulletPrefix(line string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(line, p) {
			return p, true
		}
	}
	return "", false
}

// Classify returns the first of choices that appears (case-insensitive)
// after label on a line containing it. Lines are scanned in order; when no
// labelled line names a choice, fallback is returned.
//
// Example:
//
//	Classify("Evidence quality: HIGH", "evidence quality", []string{"High", "Low"}, "Medium") // "High"
func Classify(text, label string, choices []string, fallback string) string {
	label = strings.ToLower(label)
	for line := range strings.Lines(text) {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, label) {
			continue
		}
		rest := lower[strings.Index(lower, label)+len(label):]
		for _, c := range choices {
			if strings.Contains(rest, strings.ToLower(c)) {
				return c
			}
		}
	}
	return fallback
}

// OrDefault returns items, or a copy of defaults when items is empty.
func OrDefault(items []string, defaults ...string) []string {
	if len(items) > 0 {
		return items
	}
	return slices.Clone(defaults)
}
