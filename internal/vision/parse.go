package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoJSON means the response contained no balanced JSON object.
	ErrNoJSON = errors.New("no JSON object in vision response")
	// ErrMalformedJSON means the first JSON object did not decode.
	ErrMalformedJSON = errors.New("malformed JSON in vision response")
)

// Response is the object the vision model is asked to return.
type Response struct {
	Status       string      `json:"status"`
	Bugs         []RawDefect `json:"bugs"`
	Observations []any       `json:"observations"`
}

// RawDefect is one bug as the model wrote it.
type RawDefect struct {
	ID           string `json:"id"`
	BugID        string `json:"bug_id"`
	Severity     string `json:"severity"`
	Category     string `json:"category"`
	Component    string `json:"component"`
	Description  string `json:"description"`
	Expected     string `json:"expected"`
	Actual       string `json:"actual"`
	SuggestedFix string `json:"suggested_fix"`
}

// Identifier returns id, falling back to bug_id.
func (d RawDefect) Identifier() string {
	if id := strings.TrimSpace(d.ID); id != "" {
		return id
	}
	return strings.TrimSpace(d.BugID)
}

// ParseResponse extracts and decodes the first JSON object in raw.
func ParseResponse(raw string) (*Response, error) {
	payload, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, ErrNoJSON
	}
	var resp Response
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return &resp, nil
}

// ExtractJSONObject returns the first balanced {...} substring of input.
// Braces inside JSON strings are ignored; quotes in prose before the object
// are not treated as strings.
func ExtractJSONObject(input string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if depth > 0 {
			if escaped {
				escaped = false
				continue
			}
			if inString {
				switch ch {
				case '\\':
					escaped = true
				case '"':
					inString = false
				}
				continue
			}
			if ch == '"' {
				inString = true
				continue
			}
		}
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return input[start : i+1], true
			}
		}
	}
	return "", false
}
