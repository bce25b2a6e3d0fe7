package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	errNoJSON   = errors.New("no JSON found in response")
	fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// ParseJSONResponse decodes the JSON value embedded in a model response. Code
// fences and prose around the value are tolerated.
func ParseJSONResponse[T any](response string) (T, error) {
	var out T
	raw, err := extractJSON(response)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("failed to parse LLM response: %w", err)
	}
	return out, nil
}

// extractJSON returns the outermost object or array in s.
func extractJSON(s string) (string, error) {
	if m := fencedBlock.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", errNoJSON
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return "", errNoJSON
	}
	return s[start : end+1], nil
}
