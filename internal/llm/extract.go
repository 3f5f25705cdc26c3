package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"redditminer/internal/models"
)

// ErrUnparseable is returned when no extraction strategy recovers JSON
var ErrUnparseable = errors.New("no JSON object found in model response")

var (
	reCodeBlock  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	reOpenBlock  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*)")
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reBraceSpan  = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON recovers a JSON object from raw model output, trying
// fallback strategies in order and returning on the first success:
//
//  1. parse the content directly
//  2. parse each fenced code block
//  3. repair the tail of an unterminated fenced block (truncated response)
//  4. parse each inline backtick span
//  5. parse the outermost {...} span
//
// If every strategy fails, the error carries a content preview
func ExtractJSON(content string) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrUnparseable)
	}

	if data, ok := tryParseObject(content); ok {
		return data, nil
	}

	for _, m := range reCodeBlock.FindAllStringSubmatch(content, -1) {
		if data, ok := tryParseObject(m[1]); ok {
			return data, nil
		}
	}

	if m := reOpenBlock.FindStringSubmatch(content); m != nil {
		repaired := RepairJSON(strings.TrimSpace(m[1]))
		if data, ok := tryParseObject(repaired); ok {
			return data, nil
		}
	}

	for _, m := range reInlineCode.FindAllStringSubmatch(content, -1) {
		if data, ok := tryParseObject(m[1]); ok {
			return data, nil
		}
	}

	if span := reBraceSpan.FindString(content); span != "" {
		if data, ok := tryParseObject(span); ok {
			return data, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnparseable, preview(content, 200))
}

// ParseAnalysisResult decodes extracted JSON into an AnalysisResult,
// requiring the verdict fields to be present, normalizes it (confidence
// clamping/rounding, tag cap, code coercion), and rejects dimension
// scores outside 0-10
func ParseAnalysisResult(data []byte) (*models.AnalysisResult, error) {
	var fieldCheck map[string]json.RawMessage
	if err := json.Unmarshal(data, &fieldCheck); err != nil {
		return nil, fmt.Errorf("decode analysis result: %w", err)
	}
	for _, required := range []string{"is_pain_point", "confidence", "reason"} {
		if _, ok := fieldCheck[required]; !ok {
			return nil, fmt.Errorf("analysis result missing required field %q", required)
		}
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode analysis result: %w", err)
	}
	result.Normalize()
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis result: %w", err)
	}
	return &result, nil
}

// tryParseObject reports whether s is a JSON object, returning its bytes
func tryParseObject(s string) ([]byte, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return []byte(s), true
}

// RepairJSON attempts to turn a truncated JSON-like string into
// parseable JSON: cut back an unterminated string to the last safe
// delimiter, trim dangling key/value fragments from the tail, drop a
// trailing comma, and close any brackets and braces left open. The
// result is best-effort; callers must still validate it
func RepairJSON(s string) string {
	s = cutUnterminatedString(s)
	s = trimDanglingTail(strings.TrimSpace(s))
	s = strings.TrimRight(strings.TrimSpace(s), ",")
	s = dropDanglingKey(s)

	braces, brackets := netOpen(s)
	return s + strings.Repeat("]", brackets) + strings.Repeat("}", braces)
}

// cutUnterminatedString detects a scan ending inside a quoted string
// (respecting escapes) and truncates back to the last comma, colon, or
// opening brace/bracket seen outside any string
func cutUnterminatedString(s string) string {
	inString := false
	escapeNext := false
	lastDelim := -1

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escapeNext {
			escapeNext = false
			continue
		}
		if inString && ch == '\\' {
			escapeNext = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case ',', ':', '{', '[':
			lastDelim = i
		}
	}

	if inString && lastDelim >= 0 {
		return s[:lastDelim+1]
	}
	if inString {
		return ""
	}
	return s
}

// trimDanglingTail strips trailing fragments that cannot end a JSON
// value, backing up through the last comma or through an incomplete
// "key": pair until the tail is well-formed or the input is exhausted
func trimDanglingTail(s string) string {
	const valueEnders = `{}[],"0123456789`

	for len(s) > 0 && !strings.ContainsRune(valueEnders, rune(s[len(s)-1])) {
		if i := strings.LastIndexByte(s, ','); i >= 0 {
			s = s[:i]
		} else if i := strings.LastIndexByte(s, ':'); i >= 0 {
			s = s[:i]
			// Drop the orphaned key as well
			if j := strings.LastIndexByte(s, '"'); j >= 0 {
				s = s[:j]
				if k := strings.LastIndexByte(s, '"'); k >= 0 {
					s = s[:k]
				}
			}
		} else {
			break
		}
	}
	return s
}

// dropDanglingKey removes a trailing complete string that is an object
// key with no value attached, so closing the braces cannot produce
// {"key"} fragments
func dropDanglingKey(s string) string {
	if len(s) == 0 || s[len(s)-1] != '"' {
		return s
	}

	// Locate the opening quote of the trailing string. Strings are
	// balanced here because cutUnterminatedString already ran
	open := -1
	inString := false
	escapeNext := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escapeNext {
			escapeNext = false
			continue
		}
		if inString && ch == '\\' {
			escapeNext = true
			continue
		}
		if ch == '"' {
			if inString {
				inString = false
			} else {
				inString = true
				open = i
			}
		}
	}
	if open <= 0 {
		return s
	}

	head := strings.TrimRight(s[:open], " \t\r\n")
	if head == "" {
		return s
	}
	switch head[len(head)-1] {
	case '{':
		return head
	case ',':
		return head[:len(head)-1]
	}
	return s
}

// netOpen counts braces and brackets left unclosed outside strings
func netOpen(s string) (braces, brackets int) {
	inString := false
	escapeNext := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escapeNext {
			escapeNext = false
			continue
		}
		if inString && ch == '\\' {
			escapeNext = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			braces++
		case '}':
			if braces > 0 {
				braces--
			}
		case '[':
			brackets++
		case ']':
			if brackets > 0 {
				brackets--
			}
		}
	}
	return braces, brackets
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
