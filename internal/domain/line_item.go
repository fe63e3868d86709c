package domain

// DefaultVersion is used when a request names no version.
const DefaultVersion = "latest"

// LineItem is one software and version pair extracted from a prompt.
type LineItem struct {
	Software string `json:"software"`
	Version  string `json:"version"`
}

// Normalized fills the default version.
func (l LineItem) Normalized() LineItem {
	if l.Version == "" {
		l.Version = DefaultVersion
	}
	return l
}

// Software is a catalog entry with versions ordered newest first.
type Software struct {
	Name     string
	Versions []string
}
