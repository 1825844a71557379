// Package llmjson decodes JSON objects out of model output. Decoding is
// strict first; if that fails a single repair pass (drop trailing commas,
// quote bare keys) is applied before giving up.
package llmjson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Outcome describes how a payload was decoded.
type Outcome int

const (
	// WellFormed means the extracted object decoded without changes.
	WellFormed Outcome = iota + 1
	// Repaired means the object only decoded after the repair pass.
	Repaired
)

func (o Outcome) String() string {
	switch o {
	case WellFormed:
		return "well-formed"
	case Repaired:
		return "repaired"
	default:
		return "unknown"
	}
}

// FormatError is returned when the payload cannot be decoded even after
// repair.
type FormatError struct {
	Raw string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unparseable model output: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Decode extracts the first JSON object from content and unmarshals it into v.
func Decode(content string, v interface{}) (Outcome, error) {
	object, outcome, err := Object(content)
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal([]byte(object), v); err != nil {
		return 0, &FormatError{Raw: content, Err: err}
	}
	return outcome, nil
}

// Object returns the first JSON object in content as valid JSON text, applying
// the repair pass when the strict form is invalid. Callers that need key order
// walk the result with gjson.
func Object(content string) (string, Outcome, error) {
	candidate := Extract(content)
	if candidate == "" {
		return "", 0, &FormatError{Raw: content, Err: fmt.Errorf("no JSON object found")}
	}
	if gjson.Valid(candidate) {
		return candidate, WellFormed, nil
	}

	repaired := Repair(candidate)
	if !gjson.Valid(repaired) {
		return "", 0, &FormatError{Raw: content, Err: fmt.Errorf("invalid JSON after repair")}
	}
	return repaired, Repaired, nil
}

// Extract returns the JSON object embedded in content, handling markdown code
// fences and surrounding prose. It returns "" when no object is present.
func Extract(content string) string {
	content = strings.TrimSpace(content)

	if idx := strings.Index(content, "```"); idx != -1 {
		start := idx + 3
		if nl := strings.Index(content[start:], "\n"); nl != -1 {
			start += nl + 1
		}
		if end := strings.Index(content[start:], "```"); end != -1 {
			content = strings.TrimSpace(content[start : start+end])
		}
	}

	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}

	// Unbalanced: hand back the tail and let the decoder report it.
	return content[start:]
}
