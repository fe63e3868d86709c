package parser

import (
	"sort"
	"strings"
)

var defaultAliases = map[string]string{
	"chrome":             "Google Chrome",
	"google chrome":      "Google Chrome",
	"firefox":            "Mozilla Firefox",
	"mozilla firefox":    "Mozilla Firefox",
	"safari":             "Safari",
	"edge":               "Microsoft Edge",
	"microsoft edge":     "Microsoft Edge",
	"opera":              "Opera",
	"vs code":            "Visual Studio Code",
	"vscode":             "Visual Studio Code",
	"visual studio code": "Visual Studio Code",
	"visual studio":      "Visual Studio",
	"sublime":            "Sublime Text",
	"sublime text":       "Sublime Text",
	"atom":               "Atom",
	"notepad++":          "Notepad++",
	"photoshop":          "Adobe Photoshop",
	"illustrator":        "Adobe Illustrator",
	"office":             "Microsoft Office",
	"word":               "Microsoft Word",
	"excel":              "Microsoft Excel",
	"powerpoint":         "Microsoft PowerPoint",
	"outlook":            "Microsoft Outlook",
	"python":             "Python",
	"python3":            "Python",
	"java":               "Java Runtime Environment",
	"node":               "Node.js",
	"nodejs":             "Node.js",
	"node.js":            "Node.js",
	"php":                "PHP",
	"ruby":               "Ruby",
	"git":                "Git",
	"docker":             "Docker",
	"kubernetes":         "Kubernetes",
	"postman":            "Postman",
	"gimp":               "GIMP",
	"blender":            "Blender",
}

// Aliases maps lowercase user terms to canonical catalog names.
type Aliases struct {
	table map[string]string
	// keys sorted longest first so "vs code" wins over "code".
	keys []string
}

// DefaultAliases returns the built in alias table.
func DefaultAliases() *Aliases {
	return NewAliases(defaultAliases)
}

// NewAliases builds a table from alias to canonical name pairs.
func NewAliases(table map[string]string) *Aliases {
	a := &Aliases{table: make(map[string]string, len(table))}
	for alias, canonical := range table {
		alias = strings.ToLower(strings.TrimSpace(alias))
		canonical = strings.TrimSpace(canonical)
		if alias == "" || canonical == "" {
			continue
		}
		a.table[alias] = canonical
		a.table[strings.ToLower(canonical)] = canonical
	}
	a.keys = make([]string, 0, len(a.table))
	for k := range a.table {
		a.keys = append(a.keys, k)
	}
	sort.Slice(a.keys, func(i, j int) bool {
		if len(a.keys[i]) != len(a.keys[j]) {
			return len(a.keys[i]) > len(a.keys[j])
		}
		return a.keys[i] < a.keys[j]
	})
	return a
}

// Merge returns a new table with extra entries layered over a.
func (a *Aliases) Merge(extra map[string]string) *Aliases {
	combined := make(map[string]string, len(a.table)+len(extra))
	for k, v := range a.table {
		combined[k] = v
	}
	for k, v := range extra {
		combined[k] = v
	}
	return NewAliases(combined)
}

// Canonical returns the catalog name for term.
func (a *Aliases) Canonical(term string) (string, bool) {
	v, ok := a.table[strings.ToLower(strings.TrimSpace(term))]
	return v, ok
}

type aliasHit struct {
	canonical string
	start     int
	end       int
}

// scan finds non overlapping whole word alias occurrences in lower, ordered by position.
func (a *Aliases) scan(lower string) []aliasHit {
	taken := make([]bool, len(lower))
	var hits []aliasHit
	for _, key := range a.keys {
		from := 0
		for from < len(lower) {
			idx := strings.Index(lower[from:], key)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(key)
			from = start + 1
			if !wordBoundary(lower, start, end) || overlaps(taken, start, end) {
				continue
			}
			for i := start; i < end; i++ {
				taken[i] = true
			}
			hits = append(hits, aliasHit{canonical: a.table[key], start: start, end: end})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	return hits
}

func wordBoundary(s string, start, end int) bool {
	if start > 0 && isWordByte(s[start-1]) {
		return false
	}
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '+'
}

func overlaps(taken []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if taken[i] {
			return true
		}
	}
	return false
}
