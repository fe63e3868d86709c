package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmptyInput       = errors.New("empty json input")
	ErrNoJSONCandidates = errors.New("no json candidates")
)

var (
	fencePattern    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,\s*([\]}])`)
)

// DecodePayload locates a JSON value in model output and unmarshals the first
// candidate that fits dst. Code fences, prose and trailing commas are tolerated.
func DecodePayload(text string, dst any) error {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return ErrEmptyInput
	}

	var lastErr error
	for _, cand := range collectCandidates(raw) {
		for _, variant := range []string{cand, trailingCommaRe.ReplaceAllString(cand, "$1")} {
			if !json.Valid([]byte(variant)) {
				continue
			}
			if err := json.Unmarshal([]byte(variant), dst); err != nil {
				lastErr = err
				continue
			}
			return nil
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return ErrNoJSONCandidates
}

// collectCandidates returns the raw text, fenced blocks and every balanced
// array or object snippet, in that order and without duplicates.
func collectCandidates(raw string) []string {
	out := make([]string, 0, 8)
	seen := make(map[string]bool, 8)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	add(raw)
	for _, m := range fencePattern.FindAllStringSubmatch(raw, -1) {
		add(m[1])
	}
	for _, s := range balancedSnippets(raw) {
		add(s)
	}
	return out
}

// balancedSnippets scans for top level [...] or {...} spans, skipping brackets inside strings.
func balancedSnippets(s string) []string {
	var out []string
	for start := 0; start < len(s); start++ {
		if s[start] != '[' && s[start] != '{' {
			continue
		}
		if end := matchClose(s, start); end > start {
			out = append(out, s[start:end+1])
			start = end
		}
	}
	return out
}

func matchClose(s string, start int) int {
	var stack []byte
	inString, escaped := false, false
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
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}
