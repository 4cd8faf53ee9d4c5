package versioning

import (
	"fmt"

	"github.com/dukex/curator/pkg/models"
)

// Policy holds the three version lists in precedence order. Exactly one list applies to a
// reference, the first whose URL matches.
type Policy struct {
	Check   []models.Canonical
	Force   []models.Canonical
	Default []models.Canonical
}

// NewPolicy parses "url|version" strings into a policy. Every entry must carry a version.
func NewPolicy(check, force, defaults []string) (*Policy, error) {
	p := &Policy{}

	var err error

	if p.Check, err = parseList("check", check); err != nil {
		return nil, err
	}

	if p.Force, err = parseList("force", force); err != nil {
		return nil, err
	}

	if p.Default, err = parseList("default", defaults); err != nil {
		return nil, err
	}

	return p, nil
}

func parseList(name string, refs []string) ([]models.Canonical, error) {
	out := make([]models.Canonical, 0, len(refs))

	for _, ref := range refs {
		c := models.ParseCanonical(ref)
		if c.URL == "" || c.Version == "" {
			return nil, fmt.Errorf("%w: %s entry %q must be url|version", ErrInvalidVersion, name, ref)
		}

		out = append(out, c)
	}

	return out, nil
}

// IsEmpty reports whether no list has entries.
func (p *Policy) IsEmpty() bool {
	return p == nil || len(p.Check)+len(p.Force)+len(p.Default) == 0
}

// Governs reports whether any list names url.
func (p *Policy) Governs(url string) bool {
	if p == nil {
		return false
	}

	for _, list := range [][]models.Canonical{p.Check, p.Force, p.Default} {
		if _, ok := find(list, url); ok {
			return true
		}
	}

	return false
}

// Resolve applies the policy to a reference and returns the possibly re-versioned
// reference. A check entry that disagrees with the reference yields a *MismatchError.
func (p *Policy) Resolve(ref models.Canonical) (models.Canonical, error) {
	if err := p.Verify(ref); err != nil {
		return ref, err
	}

	return p.Pin(ref), nil
}

// Verify asserts the reference against a matching check entry, if any.
func (p *Policy) Verify(ref models.Canonical) error {
	if p == nil {
		return nil
	}

	if entry, ok := find(p.Check, ref.URL); ok && entry.Version != ref.Version {
		return &MismatchError{URL: ref.URL, Expected: entry.Version, Actual: ref.Version}
	}

	return nil
}

// Pin applies the force and default lists to a reference not governed by a check entry.
func (p *Policy) Pin(ref models.Canonical) models.Canonical {
	if p == nil {
		return ref
	}

	if _, ok := find(p.Check, ref.URL); ok {
		return ref
	}

	if entry, ok := find(p.Force, ref.URL); ok {
		return ref.WithVersion(entry.Version)
	}

	if entry, ok := find(p.Default, ref.URL); ok && !ref.IsVersioned() {
		return ref.WithVersion(entry.Version)
	}

	return ref
}

// Apply resolves the artifact's own identity and writes the result back to its version.
func (p *Policy) Apply(artifact *models.Artifact) error {
	resolved, err := p.Resolve(artifact.Canonical())
	if err != nil {
		return err
	}

	artifact.Version = resolved.Version

	return nil
}

func find(list []models.Canonical, url string) (models.Canonical, bool) {
	for _, entry := range list {
		if entry.URL == url {
			return entry, true
		}
	}

	return models.Canonical{}, false
}
