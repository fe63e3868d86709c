package catalog

import (
	"sort"
	"strings"
	"unicode"
)

// CompareVersions orders version strings naturally, so "3.10" sorts after "3.9".
func CompareVersions(a, b string) int {
	ca, cb := versionChunks(a), versionChunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		if c := compareChunk(ca[i], cb[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(ca) < len(cb):
		return -1
	case len(ca) > len(cb):
		return 1
	default:
		return 0
	}
}

// SortDescending sorts versions newest first and drops duplicates.
func SortDescending(versions []string) []string {
	seen := make(map[string]struct{}, len(versions))
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return CompareVersions(out[i], out[j]) > 0
	})
	return out
}

func versionChunks(v string) []string {
	v = strings.ToLower(strings.TrimSpace(v))
	var (
		chunks []string
		cur    strings.Builder
		digit  bool
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range v {
		switch {
		case unicode.IsDigit(r):
			if !digit {
				flush()
			}
			digit = true
			cur.WriteRune(r)
		case r == '.' || r == '-' || r == '_' || r == '+':
			flush()
			digit = false
		default:
			if digit {
				flush()
			}
			digit = false
			cur.WriteRune(r)
		}
	}
	flush()
	return chunks
}

func compareChunk(a, b string) int {
	an, bn := isNumeric(a), isNumeric(b)
	switch {
	case an && bn:
		a, b = strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	case an:
		return 1
	case bn:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// pickVersion applies a version hint to versions ordered newest first.
func pickVersion(versions []string, hint string) (string, bool) {
	if len(versions) == 0 {
		return "", false
	}
	hint = strings.TrimSpace(hint)
	if hint == "" || strings.EqualFold(hint, "latest") {
		return versions[0], true
	}
	for _, v := range versions {
		if strings.EqualFold(v, hint) {
			return v, true
		}
	}
	for _, v := range versions {
		if strings.HasPrefix(strings.ToLower(v), strings.ToLower(hint)+".") {
			return v, true
		}
	}
	return "", false
}
