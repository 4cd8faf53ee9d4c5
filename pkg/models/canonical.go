package models

import "strings"

// Canonical is a canonical URL with an optional version.
type Canonical struct {
	URL     string
	Version string
}

// ParseCanonical splits a "url|version" reference.
func ParseCanonical(ref string) Canonical {
	url, version, _ := strings.Cut(strings.TrimSpace(ref), "|")

	return Canonical{URL: url, Version: version}
}

// String renders the canonical as "url" or "url|version".
func (c Canonical) String() string {
	if c.Version == "" {
		return c.URL
	}

	return c.URL + "|" + c.Version
}

// WithVersion returns a copy pinned to version.
func (c Canonical) WithVersion(version string) Canonical {
	c.Version = version

	return c
}

// IsVersioned reports whether the canonical carries a version.
func (c Canonical) IsVersioned() bool {
	return c.Version != ""
}

// SameURL compares canonical URLs ignoring any version suffix on either side.
func SameURL(a, b string) bool {
	return ParseCanonical(a).URL == ParseCanonical(b).URL
}

// URLTail returns the last path segment of a canonical URL.
func URLTail(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}

	return trimmed
}
