package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON signals that no parsable JSON value was found in the input.
// Callers match it with errors.Is to distinguish "nothing there" from a
// transport failure.
var ErrNoJSON = errors.New("no JSON found in text")

const previewLimit = 200

var (
	fencedBlockRe = regexp.MustCompile("(?is)```(?:json|python|javascript|js|text)?\\s*(.*?)```")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// Extract recovers a single JSON value (object or array) from free-form LLM
// output. Strategies are tried in order, first success wins:
//  1. direct parse of the trimmed text
//  2. interior of the first fenced code block
//  3. brace-depth scan from the first '{' or '['
//
// A trailing comma before a closing bracket is repaired before every parse
// attempt.
func Extract(text string) (any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty input", ErrNoJSON)
	}

	if v, err := parseRepaired(trimmed); err == nil {
		return v, nil
	}

	if m := fencedBlockRe.FindStringSubmatch(trimmed); m != nil {
		if v, err := parseRepaired(strings.TrimSpace(m[1])); err == nil {
			return v, nil
		}
	}

	if candidate := scanBracketed(trimmed); candidate != "" {
		if v, err := parseRepaired(candidate); err == nil {
			return v, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrNoJSON, preview(trimmed))
}

// ExtractInto unmarshals the recovered JSON value into out.
func ExtractInto(text string, out any) error {
	v, err := Extract(text)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// RepairTrailingCommas deletes a comma that immediately precedes a closing
// '}' or ']'.
func RepairTrailingCommas(s string) string {
	return trailingComma.ReplaceAllString(s, "$1")
}

func parseRepaired(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(RepairTrailingCommas(s)), &v); err != nil {
		return nil, err
	}
	switch v.(type) {
	case map[string]any, []any:
		return v, nil
	default:
		// Bare scalars are not useful structured output.
		return nil, fmt.Errorf("not a JSON object or array")
	}
}

// scanBracketed finds the first '{' or '[' and walks forward counting
// bracket depth, ignoring brackets inside double-quoted strings and
// honoring backslash escapes. Returns the matched substring or "".
func scanBracketed(s string) string {
	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			open = s[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// brackets inside strings do not count
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func preview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	return s[:previewLimit] + "..."
}
