// Package llmutil contains helpers for coping with the creative formatting
// of LLM output, chiefly extracting JSON from conversational responses.
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

var (
	// Regexes use \x60 for backticks because Go raw strings cannot contain them.
	jsonObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
	jsonArrayRegex  = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\[.*\\])\\s*\x60\x60\x60")
)

// ExtractJSON pulls the JSON payload out of an LLM response, stripping
// markdown fences and surrounding prose. Returns an error when no JSON
// structure can be located at all.
func ExtractJSON(response string) (string, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return "", fmt.Errorf("empty LLM response")
	}

	hasObject := strings.Contains(response, "{")
	hasArray := strings.Contains(response, "[")

	// Markdown fences are the most common wrapping.
	if strings.HasPrefix(response, "```") {
		var matches []string
		if hasObject {
			matches = jsonObjectRegex.FindStringSubmatch(response)
		}
		if len(matches) <= 1 && hasArray {
			matches = jsonArrayRegex.FindStringSubmatch(response)
		}
		if len(matches) > 1 {
			return strings.TrimSpace(matches[1]), nil
		}
	}

	// Bare JSON, possibly buried in conversational text.
	if hasObject {
		first := strings.Index(response, "{")
		last := strings.LastIndex(response, "}")
		if first != -1 && last > first {
			return response[first : last+1], nil
		}
	}
	if hasArray {
		first := strings.Index(response, "[")
		last := strings.LastIndex(response, "]")
		if first != -1 && last > first {
			return response[first : last+1], nil
		}
	}

	return "", fmt.Errorf("no JSON object or array found in LLM response")
}

// ParseJSONResponse extracts and unmarshals an LLM response into T.
func ParseJSONResponse[T any](response string) (*T, error) {
	payload, err := ExtractJSON(response)
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w. Extracted JSON (truncated): %s", err, truncate(payload, 500))
	}
	return &result, nil
}

// truncate shortens a string for error messages.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
