package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrInvalidJSON is wrapped by ParseJSON when content cannot be decoded even
// after repair.
var ErrInvalidJSON = errors.New("invalid json")

// ParseJSON decodes model output into T.
//
// Models often wrap JSON in prose or Markdown fences, and emit single
// quotes, trailing commas or unquoted keys. ParseJSON strips fences, cuts
// the outermost object or array out of surrounding text and, when strict
// decoding fails, repairs the JSON and tries again.
//
// Example:
//
//	type plan struct {
//	    KeyTopics []string `json:"key_topics"`
//	}
//	p, err := llm.ParseJSON[plan]("Here you go:\n```json\n{key_topics: ['a', 'b'],}\n```")
func ParseJSON[T any](content string) (T, error) {
	var result T

	candidate := jsonCandidate(content)
	if candidate == "" {
		return result, fmt.Errorf("%w: no json found in content", ErrInvalidJSON)
	}

	err := json.Unmarshal([]byte(candidate), &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return result, fmt.Errorf("%w: %v (repair failed: %v)", ErrInvalidJSON, err, repairErr)
	}
	result = *new(T)
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return result, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return result, nil
}

// jsonCandidate returns the fenced block, or the span from the first opening
// brace or bracket to the last matching closer, or the trimmed content.
func jsonCandidate(content string) string {
	s := strings.TrimSpace(content)
	if start := strings.Index(s, "```"); start >= 0 {
		body := s[start+3:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		s = strings.TrimSpace(body)
	}

	open := strings.IndexAny(s, "{[")
	if open < 0 {
		return s
	}
	closer := "}"
	if s[open] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(s, closer); end > open {
		return s[open : end+1]
	}
	return s[open:]
}
