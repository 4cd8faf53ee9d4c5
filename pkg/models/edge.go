package models

import "slices"

// EdgeType is the relationship type carried by an edge.
type EdgeType string

const (
	EdgeComposedOf EdgeType = "composed-of" // owned component
	EdgeDependsOn  EdgeType = "depends-on"  // independently lifecycled dependency
)

// Role tags assigned to dependency edges.
const (
	RoleDefault = "default"
	RoleKey     = "key"
	RoleTest    = "test"
	RoleExample = "example"
)

// Edge is a directed reference from one artifact to another's canonical URL.
type Edge struct {
	Reference        string            `json:"reference"` // url or url|version
	Owned            bool              `json:"owned,omitempty"`
	RoleTags         []string          `json:"role_tags,omitempty"`
	TargetKind       Kind              `json:"target_kind,omitempty"`
	Display          string            `json:"display,omitempty"`
	Extensions       map[string]string `json:"extensions,omitempty"`
	DeclaredLocation string            `json:"declared_location,omitempty"` // informational only
}

// Type returns composed-of for owned edges and depends-on otherwise.
func (e *Edge) Type() EdgeType {
	if e.Owned {
		return EdgeComposedOf
	}

	return EdgeDependsOn
}

// Target parses the edge reference.
func (e *Edge) Target() Canonical {
	return ParseCanonical(e.Reference)
}

// HasRole reports whether the edge carries the role tag.
func (e *Edge) HasRole(role string) bool {
	return slices.Contains(e.RoleTags, role)
}

// AddRoles merges role tags into the edge, keeping the set sorted and unique.
func (e *Edge) AddRoles(roles ...string) {
	for _, role := range roles {
		if !slices.Contains(e.RoleTags, role) {
			e.RoleTags = append(e.RoleTags, role)
		}
	}

	slices.Sort(e.RoleTags)
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}

	c := *e
	c.RoleTags = slices.Clone(e.RoleTags)
	c.Extensions = cloneMap(e.Extensions)

	return &c
}
