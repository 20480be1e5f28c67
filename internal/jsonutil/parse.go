// Package jsonutil extracts JSON payloads from model output that may be
// wrapped in markdown code fences or surrounded by prose.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when text contains no JSON object or array.
var ErrNoJSON = errors.New("jsonutil: no JSON content found")

// StripFences removes a ```json ... ``` (or plain ```) wrapper from text.
// Text without an opening fence is returned unchanged.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	// Drop the opening fence line, language tag included.
	_, rest, ok := strings.Cut(text, "\n")
	if !ok {
		return text
	}

	if idx := strings.LastIndex(rest, "```"); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSpace(rest)
}

// Extract returns the outermost JSON object or array in text, which may be
// surrounded by prose.
func Extract(text string) (string, error) {
	text = strings.TrimSpace(text)

	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return "", ErrNoJSON
	}

	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}

	end := strings.LastIndex(text, closer)
	if end < start {
		return "", fmt.Errorf("jsonutil: no closing %s found", closer)
	}

	return text[start : end+1], nil
}

// Parse strips fences, extracts the JSON payload, and unmarshals it into T.
func Parse[T any](raw string) (T, error) {
	var result T

	payload, err := Extract(StripFences(raw))
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return result, fmt.Errorf("jsonutil: decode payload: %w", err)
	}
	return result, nil
}
