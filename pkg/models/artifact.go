// Package models defines the core domain models for versioned knowledge artifacts.
package models

import (
	"slices"
	"time"
)

// ArtifactStatus represents the lifecycle state of an artifact.
type ArtifactStatus string

const (
	StatusDraft   ArtifactStatus = "draft"   // Editable, not distributable
	StatusActive  ArtifactStatus = "active"  // Released, immutable
	StatusRetired ArtifactStatus = "retired" // Historical, superseded
)

// Usage marks artifacts that only exist to test or illustrate other artifacts.
type Usage string

const (
	UsageNone    Usage = ""
	UsageTest    Usage = "test"
	UsageExample Usage = "example"
)

// Kind is the declared resource kind of an artifact.
type Kind string

const (
	KindLibrary             Kind = "Library"
	KindMeasure             Kind = "Measure"
	KindPlanDefinition      Kind = "PlanDefinition"
	KindActivityDefinition  Kind = "ActivityDefinition"
	KindQuestionnaire       Kind = "Questionnaire"
	KindStructureDefinition Kind = "StructureDefinition"
	KindValueSet            Kind = "ValueSet"
	KindCodeSystem          Kind = "CodeSystem"
	KindConceptMap          Kind = "ConceptMap"
	KindSearchParameter     Kind = "SearchParameter"
	KindImplementationGuide Kind = "ImplementationGuide"
)

var knownKinds = []Kind{
	KindLibrary,
	KindMeasure,
	KindPlanDefinition,
	KindActivityDefinition,
	KindQuestionnaire,
	KindStructureDefinition,
	KindValueSet,
	KindCodeSystem,
	KindConceptMap,
	KindSearchParameter,
	KindImplementationGuide,
}

// IsKnown reports whether k is one of the supported resource kinds.
func (k Kind) IsKnown() bool {
	return slices.Contains(knownKinds, k)
}

// IsLogic reports whether the kind carries executable or computable logic.
func (k Kind) IsLogic() bool {
	return k == KindLibrary || k == KindMeasure || k == KindPlanDefinition || k == KindActivityDefinition
}

// IsStructuralProfile reports whether the kind constrains a data structure.
func (k Kind) IsStructuralProfile() bool {
	return k == KindStructureDefinition
}

// IsTerminology reports whether the kind is a terminology artifact.
func (k Kind) IsTerminology() bool {
	return k == KindValueSet || k == KindCodeSystem || k == KindConceptMap
}

// IsCodeSystemLike reports whether references to the kind pin a code system version.
func (k Kind) IsCodeSystemLike() bool {
	return k == KindCodeSystem
}

// Well-known extension keys.
const (
	ExtReleaseLabel       = "release-label"
	ExtReleaseDescription = "release-description"
	ExtResourceKind       = "resource-kind"
)

// Known capability tags.
const (
	CapabilityShareable   = "shareable"
	CapabilityComputable  = "computable"
	CapabilityPublishable = "publishable"
	CapabilityExecutable  = "executable"
)

var knownCapabilities = []string{
	CapabilityShareable,
	CapabilityComputable,
	CapabilityPublishable,
	CapabilityExecutable,
}

// IsKnownCapability reports whether tag is a recognized capability tag.
func IsKnownCapability(tag string) bool {
	return slices.Contains(knownCapabilities, tag)
}

// Period is an optional start/end date range.
type Period struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Artifact is a versioned, canonically-identified document subject to lifecycle management.
// Identity is (URL, Version); ID is the storage identifier.
type Artifact struct {
	ID               string            `json:"id"`
	Kind             Kind              `json:"kind"                         validate:"required"`
	URL              string            `json:"url"                          validate:"required"`
	Version          string            `json:"version,omitempty"`
	Name             string            `json:"name,omitempty"`
	Title            string            `json:"title,omitempty"`
	Status           ArtifactStatus    `json:"status"                       validate:"required,oneof=draft active retired"`
	Experimental     bool              `json:"experimental,omitempty"`
	LastModified     time.Time         `json:"last_modified"`
	ApprovalDate     *time.Time        `json:"approval_date,omitempty"`
	EffectivePeriod  *Period           `json:"effective_period,omitempty"`
	Usage            Usage             `json:"usage,omitempty"`
	Capabilities     []string          `json:"capabilities,omitempty"`
	SourcePackageTag string            `json:"source_package_tag,omitempty"` // packageId#version
	PackageVersions  map[string]string `json:"package_versions,omitempty"`   // declared-package version map
	Extensions       map[string]string `json:"extensions,omitempty"`
	Edges            []*Edge           `json:"edges,omitempty"`
	Elements         []Element         `json:"elements,omitempty"`
	Compose          *Compose          `json:"compose,omitempty"`
	Expansion        *Expansion        `json:"expansion,omitempty"`
}

// Canonical returns the artifact identity.
func (a *Artifact) Canonical() Canonical {
	return Canonical{URL: a.URL, Version: a.Version}
}

// OwnedEdges returns the edges whose targets are components of this artifact.
func (a *Artifact) OwnedEdges() []*Edge {
	owned := make([]*Edge, 0, len(a.Edges))

	for _, edge := range a.Edges {
		if edge.Owned {
			owned = append(owned, edge)
		}
	}

	return owned
}

// DependencyEdges returns the edges to independently-lifecycled artifacts.
func (a *Artifact) DependencyEdges() []*Edge {
	deps := make([]*Edge, 0, len(a.Edges))

	for _, edge := range a.Edges {
		if !edge.Owned {
			deps = append(deps, edge)
		}
	}

	return deps
}

// HasCapability reports whether the artifact declares the capability tag.
func (a *Artifact) HasCapability(tag string) bool {
	return slices.Contains(a.Capabilities, tag)
}

// SetExtension stores an extension value, allocating the map on first use.
func (a *Artifact) SetExtension(key, value string) {
	if a.Extensions == nil {
		a.Extensions = make(map[string]string)
	}

	a.Extensions[key] = value
}

// Clone returns a deep copy of the artifact. Mutations on the copy never reach the original.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}

	c := *a
	c.ApprovalDate = cloneTime(a.ApprovalDate)

	if a.EffectivePeriod != nil {
		c.EffectivePeriod = &Period{
			Start: cloneTime(a.EffectivePeriod.Start),
			End:   cloneTime(a.EffectivePeriod.End),
		}
	}

	c.Capabilities = slices.Clone(a.Capabilities)
	c.PackageVersions = cloneMap(a.PackageVersions)
	c.Extensions = cloneMap(a.Extensions)

	if a.Edges != nil {
		c.Edges = make([]*Edge, len(a.Edges))
		for i, edge := range a.Edges {
			c.Edges[i] = edge.Clone()
		}
	}

	if a.Elements != nil {
		c.Elements = make([]Element, len(a.Elements))
		for i, el := range a.Elements {
			c.Elements[i] = el.clone()
		}
	}

	c.Compose = a.Compose.clone()
	c.Expansion = a.Expansion.Clone()

	return &c
}

// Element is one element definition of a structural profile.
type Element struct {
	Path        string   `json:"path"`
	SliceName   string   `json:"slice_name,omitempty"`
	MustSupport bool     `json:"must_support,omitempty"`
	IsModifier  bool     `json:"is_modifier,omitempty"`
	Min         int      `json:"min,omitempty"`
	Constrained bool     `json:"constrained,omitempty"` // fixed value, pattern or invariant present
	Binding     *Binding `json:"binding,omitempty"`
}

func (e Element) clone() Element {
	if e.Binding != nil {
		b := *e.Binding
		e.Binding = &b
	}

	return e
}

// Binding ties an element to a terminology artifact.
type Binding struct {
	Strength string `json:"strength,omitempty"`
	ValueSet string `json:"value_set"`
}

// Compose is the definition of a value set.
type Compose struct {
	Include []ComposeInclude `json:"include,omitempty"`
}

// ComposeInclude selects concepts from a system or from other value sets.
type ComposeInclude struct {
	System    string    `json:"system,omitempty"`
	Version   string    `json:"version,omitempty"`
	Concepts  []Concept `json:"concepts,omitempty"`
	ValueSets []string  `json:"value_sets,omitempty"`
}

// Concept is a code with an optional display.
type Concept struct {
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

// IsGrouper reports whether the compose includes other value sets.
func (c *Compose) IsGrouper() bool {
	if c == nil {
		return false
	}

	for _, inc := range c.Include {
		if len(inc.ValueSets) > 0 {
			return true
		}
	}

	return false
}

// ChildValueSets returns every value set reference included by the compose.
func (c *Compose) ChildValueSets() []string {
	if c == nil {
		return nil
	}

	var children []string
	for _, inc := range c.Include {
		children = append(children, inc.ValueSets...)
	}

	return children
}

func (c *Compose) clone() *Compose {
	if c == nil {
		return nil
	}

	out := &Compose{Include: make([]ComposeInclude, len(c.Include))}
	for i, inc := range c.Include {
		inc.Concepts = slices.Clone(inc.Concepts)
		inc.ValueSets = slices.Clone(inc.ValueSets)
		out.Include[i] = inc
	}

	return out
}

// Expansion is the computed contents of a value set.
type Expansion struct {
	Timestamp time.Time `json:"timestamp"`
	Contains  []Coding  `json:"contains,omitempty"`
}

// Coding is one expanded code.
type Coding struct {
	System  string `json:"system"`
	Version string `json:"version,omitempty"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

// Clone returns a deep copy of the expansion.
func (e *Expansion) Clone() *Expansion {
	if e == nil {
		return nil
	}

	out := *e
	out.Contains = slices.Clone(e.Contains)

	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	v := *t

	return &v
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}

	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}
