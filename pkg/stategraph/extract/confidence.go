package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultConfidence is returned when no score can be read from the text.
const DefaultConfidence = 0.7

// ConfidenceLabel is the case-insensitive marker ParseConfidence looks for.
const ConfidenceLabel = "confidence"

// ErrNoMatch is wrapped by ParsingError when the text holds nothing to parse.
var ErrNoMatch = errors.New("no match")

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParsingError reports text that did not contain the expected field. It is
// informational: callers fall back to a default and keep going.
type ParsingError struct {
	Field string
	Text  string
	Err   error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Field, e.Err)
}

func (e *ParsingError) Unwrap() error {
	return e.Err
}

// ParseConfidence reads a score in [0,1] from the first line that mentions
// "confidence" and carries a number. The number after the label is
// preferred, otherwise the first number on the line is used.
//
// Values above 1 are read as percentages and divided by 100; the result,
// negatives included, is clamped to [0,1]. Without a match DefaultConfidence is returned together
// with a *ParsingError.
//
//	ParseConfidence("confidence: 0.85") // 0.85, nil
//	ParseConfidence("Confidence: 85%")  // 0.85, nil
//	ParseConfidence("no score here")    // 0.7, *ParsingError
func ParseConfidence(text string) (float64, error) {
	for line := range strings.Lines(text) {
		lower := strings.ToLower(line)
		idx := strings.Index(lower, ConfidenceLabel)
		if idx < 0 {
			continue
		}
		match := numberPattern.FindString(lower[idx+len(ConfidenceLabel):])
		if match == "" {
			match = numberPattern.FindString(lower)
		}
		if match == "" {
			continue
		}
		v, err := strconv.ParseFloat(match, 64)
		if err != nil {
			continue
		}
		return normalize(v), nil
	}
	return DefaultConfidence, &ParsingError{Field: ConfidenceLabel, Text: text, Err: ErrNoMatch}
}

// Confidence is ParseConfidence without the error.
func Confidence(text string) float64 {
	v, _ := ParseConfidence(text)
	return v
}

func normalize(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	return min(max(v, 0), 1)
}
