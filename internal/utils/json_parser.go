package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoJSON is returned when no usable JSON object could be recovered from AI output
var ErrNoJSON = errors.New("no JSON object found")

// StripCodeFences removes markdown code fence decoration (```json / ```) from AI output
func StripCodeFences(input string) string {
	s := strings.ReplaceAll(input, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimPrefix(strings.TrimSpace(s), "\ufeff")
	return strings.TrimSpace(s)
}

// ParseMarkedJSON parses a JSON object from AI output.
//
// Strict stage: the fence-stripped output parsed as a whole, when it is an object.
// Loose stage: the first embedded object containing "marker", repaired if malformed.
func ParseMarkedJSON(input, marker string, target interface{}) error {
	cleaned := StripCodeFences(input)
	if cleaned == "" {
		return fmt.Errorf("empty input: %w", ErrNoJSON)
	}

	if isObject([]byte(cleaned)) {
		if err := json.Unmarshal([]byte(cleaned), target); err == nil {
			return nil
		}
	}

	fragment := findMarkedFragment(cleaned, marker)
	if fragment == "" {
		return fmt.Errorf("%w with field %q in: %s", ErrNoJSON, marker, truncateString(cleaned, 100))
	}
	if err := unmarshalJSON([]byte(fragment), target); err != nil {
		return fmt.Errorf("failed to parse JSON fragment %s: %w", truncateString(fragment, 100), err)
	}
	return nil
}

// isObject reports whether data is a well-formed JSON object
func isObject(data []byte) bool {
	var fields map[string]json.RawMessage
	return json.Unmarshal(data, &fields) == nil && fields != nil
}

// findMarkedFragment locates an object containing the quoted marker.
// Balanced objects are preferred; a truncated tail starting at the
// nearest '{' before the marker is returned for repair otherwise.
func findMarkedFragment(input, marker string) string {
	quoted := `"` + marker + `"`
	for _, snippet := range ExtractJSONSnippets(input) {
		if strings.HasPrefix(snippet, "{") && strings.Contains(snippet, quoted) {
			return snippet
		}
	}

	idx := strings.Index(input, quoted)
	if idx < 0 {
		return ""
	}
	start := strings.LastIndex(input[:idx], "{")
	if start < 0 {
		return ""
	}
	return input[start:]
}

// unmarshalJSON unmarshals data into v, repairing malformed JSON on syntax errors
func unmarshalJSON(data []byte, v interface{}) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	fixed, rerr := jsonrepair.JSONRepair(string(data))
	if rerr != nil {
		return fmt.Errorf("repair failed: %w", rerr)
	}
	return json.Unmarshal([]byte(fixed), v)
}

// extractBalancedBraces extracts content with balanced braces
func extractBalancedBraces(input string, open, close rune) string {
	if len(input) == 0 {
		return ""
	}

	depth := 0
	inString := false
	escape := false
	start := 0

	for i, ch := range input {
		if escape {
			escape = false
			continue
		}

		if ch == '\\' {
			escape = true
			continue
		}

		if ch == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if ch == open {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == close {
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}

	return ""
}

// ExtractJSONSnippets finds all balanced JSON objects or arrays in text
func ExtractJSONSnippets(input string) []string {
	var snippets []string

	for i := 0; i < len(input); i++ {
		if input[i] == '{' {
			if extracted := extractBalancedBraces(input[i:], '{', '}'); extracted != "" {
				snippets = append(snippets, extracted)
				i += len(extracted) - 1
			}
		} else if input[i] == '[' {
			if extracted := extractBalancedBraces(input[i:], '[', ']'); extracted != "" {
				snippets = append(snippets, extracted)
				i += len(extracted) - 1
			}
		}
	}

	return snippets
}

// truncateString truncates a string to maxLen bytes
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
