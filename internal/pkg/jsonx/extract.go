// Package jsonx hardens JSON recovery from model output. Automations
// depend on this single primitive instead of re-implementing ad-hoc
// heuristics: model responses may wrap JSON in markdown fences, prepend
// prose, or truncate mid-array when the completion hits its length cap.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoJSON = errors.New("no JSON array found in text")

// ExtractArray locates a JSON array in s and unmarshals it into out.
// Fallback ladder: fenced code block -> bracket scan -> truncated-array
// repair. out must be a pointer to a slice type.
func ExtractArray(s string, out any) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrNoJSON
	}

	candidates := []string{}
	if fenced := fencedBlock(s); fenced != "" {
		candidates = append(candidates, fenced)
	}
	candidates = append(candidates, s)
	if scanned := bracketScan(s); scanned != "" {
		candidates = append(candidates, scanned)
	}

	var lastErr error
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if !strings.HasPrefix(c, "[") {
			if inner := bracketScan(c); inner != "" {
				c = inner
			} else {
				continue
			}
		}
		if err := json.Unmarshal([]byte(c), out); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if repaired, ok := repairTruncatedArray(c); ok {
			if err := json.Unmarshal([]byte(repaired), out); err == nil {
				return nil
			} else {
				lastErr = err
			}
		}
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrNoJSON, lastErr)
	}
	return ErrNoJSON
}

// ExtractStrings is ExtractArray specialized to []string with
// whitespace trimming and empty-element filtering.
func ExtractStrings(s string) ([]string, error) {
	var raw []string
	if err := ExtractArray(s, &raw); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

// fencedBlock returns the contents of the first markdown code fence,
// with an optional language tag stripped.
func fencedBlock(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return ""
	}
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		lang := strings.TrimSpace(rest[:nl])
		if len(lang) <= 8 && !strings.ContainsAny(lang, "[{") {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		// Unterminated fence: truncated response, keep the tail.
		return rest
	}
	return rest[:end]
}

// bracketScan returns the substring from the first '[' through the
// matching ']' (string-literal aware), or through the end of input when
// the array never closes.
func bracketScan(s string) string {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 && c == ']' {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}

// repairTruncatedArray drops a trailing partial element and closes the
// array. Returns false when nothing salvageable remains.
func repairTruncatedArray(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return "", false
	}
	// Walk elements at depth 1, remembering the last position where a
	// complete element ended.
	lastComplete := 0
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				if depth == 1 {
					lastComplete = i + 1
				}
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 1 {
				lastComplete = i + 1
			}
		case ',':
			// Scalar elements (numbers, true/false/null) only end at a
			// delimiter; the comma marks the previous element complete.
			if depth == 1 {
				lastComplete = i
			}
		}
	}
	if lastComplete <= 1 {
		return "[]", true
	}
	return s[:lastComplete] + "]", true
}
