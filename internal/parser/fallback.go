package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

var (
	installIndicator = regexp.MustCompile(`\b(?:install(?:ing|ed)?|set\s?up|download|get|need|want|require)\b`)
	separators       = regexp.MustCompile(`\s+and\s+|\s*&\s*|;`)
	explicitVersion  = regexp.MustCompile(`(?i)\b(?:version|v)\s*(\d+[\w.]*)`)
	trailingVersion  = regexp.MustCompile(`\s(\d+(?:\.\w+)*)\s*$`)
	leadingVersion   = regexp.MustCompile(`^\s*(?:version\s*|v\s*)?(\d+[\w.]*)`)
	spaces           = regexp.MustCompile(`\s+`)
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "a": {}, "an": {}, "with": {}, "for": {}, "to": {}, "from": {},
	"browser": {}, "editor": {}, "ide": {}, "i": {}, "me": {}, "my": {}, "please": {}, "also": {},
	"can": {}, "you": {}, "could": {}, "would": {}, "like": {}, "some": {}, "us": {}, "on": {},
	"machine": {}, "laptop": {}, "computer": {},
}

// Fallback is the deterministic parsing tier.
type Fallback struct {
	aliases *Aliases
}

// NewFallback returns a fallback parser using aliases for canonical names.
func NewFallback(aliases *Aliases) *Fallback {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Fallback{aliases: aliases}
}

// Parse segments text into line items. Text without an install verb yields nil.
func (f *Fallback) Parse(text string) []domain.LineItem {
	lower := strings.TrimRight(strings.ToLower(strings.TrimSpace(text)), ".!?")
	if lower == "" || !installIndicator.MatchString(lower) {
		return nil
	}

	clean := separators.ReplaceAllString(lower, ",")
	clean = installIndicator.ReplaceAllString(clean, " ")

	var items []domain.LineItem
	for _, part := range strings.Split(clean, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		version := domain.DefaultVersion
		if m := explicitVersion.FindStringSubmatchIndex(part); m != nil {
			version = part[m[2]:m[3]]
			part = part[:m[0]] + part[m[1]:]
		} else if m := trailingVersion.FindStringSubmatchIndex(part); m != nil {
			version = part[m[2]:m[3]]
			part = part[:m[0]]
		}
		name := f.cleanName(part)
		if len(strings.ReplaceAll(name, " ", "")) <= 1 {
			continue
		}
		items = append(items, domain.LineItem{Software: name, Version: version})
	}

	if len(items) <= 1 {
		if found := f.scanKnown(lower); len(found) > 0 {
			items = found
		}
	}
	return dedupe(items)
}

func (f *Fallback) cleanName(part string) string {
	words := strings.Fields(part)
	kept := words[:0]
	for _, w := range words {
		w = strings.Trim(w, ".!?\"'()")
		if _, stop := stopWords[w]; stop || w == "" {
			continue
		}
		kept = append(kept, w)
	}
	name := spaces.ReplaceAllString(strings.Join(kept, " "), " ")
	if name == "" {
		return ""
	}
	if canonical, ok := f.aliases.Canonical(name); ok {
		return canonical
	}
	return titleCase(name)
}

func (f *Fallback) scanKnown(lower string) []domain.LineItem {
	hits := f.aliases.scan(lower)
	items := make([]domain.LineItem, 0, len(hits))
	for _, hit := range hits {
		version := domain.DefaultVersion
		if m := leadingVersion.FindStringSubmatch(lower[hit.end:]); m != nil {
			version = m[1]
		}
		items = append(items, domain.LineItem{Software: hit.canonical, Version: version})
	}
	return items
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// dedupe keeps the first occurrence of each canonical name.
func dedupe(items []domain.LineItem) []domain.LineItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		key := strings.ToLower(strings.TrimSpace(it.Software))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it.Normalized())
	}
	return out
}
