// Package terminology expands value sets for packaging and caches the results.
package terminology

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/curator/pkg/models"
)

// ErrNotEnumerable indicates a compose include that cannot be expanded locally.
var ErrNotEnumerable = errors.New("value set cannot be enumerated locally")

// Expander computes the expansion of a leaf value set.
type Expander interface {
	Expand(ctx context.Context, leaf *models.Artifact, endpoint string, params *models.Parameters) (*models.Expansion, error)
}

// ComposeExpander expands leaf value sets from the concepts listed in their compose.
type ComposeExpander struct {
	now func() time.Time
}

// NewComposeExpander creates a local expander.
func NewComposeExpander() *ComposeExpander {
	return &ComposeExpander{now: time.Now}
}

// Expand lists every explicitly enumerated concept. An include that names a system
// without concepts needs a terminology server and yields ErrNotEnumerable. Pinned system
// versions come from the include or from system-version parameters.
func (e *ComposeExpander) Expand(_ context.Context, leaf *models.Artifact, _ string, params *models.Parameters) (*models.Expansion, error) {
	if leaf.Compose.IsGrouper() {
		return nil, fmt.Errorf("%s is a grouper: expand its children", leaf.Canonical())
	}

	pinned := systemVersions(params)
	expansion := &models.Expansion{Timestamp: e.now().UTC()}

	if leaf.Compose == nil {
		return expansion, nil
	}

	for _, inc := range leaf.Compose.Include {
		if len(inc.Concepts) == 0 {
			return nil, fmt.Errorf("%w: %s includes all of %s", ErrNotEnumerable, leaf.Canonical(), inc.System)
		}

		version := inc.Version
		if version == "" {
			version = pinned[inc.System]
		}

		for _, concept := range inc.Concepts {
			expansion.Contains = append(expansion.Contains, models.Coding{
				System:  inc.System,
				Version: version,
				Code:    concept.Code,
				Display: concept.Display,
			})
		}
	}

	return expansion, nil
}

func systemVersions(params *models.Parameters) map[string]string {
	pinned := map[string]string{}
	if params == nil {
		return pinned
	}

	for _, value := range params.Values(models.ParamSystemVersion) {
		c := models.ParseCanonical(value)
		pinned[c.URL] = c.Version
	}

	return pinned
}

// Union merges child expansions into a grouper expansion, de-duplicated by system and code
// in first-seen order.
func Union(children []*models.Expansion, timestamp time.Time) *models.Expansion {
	type key struct{ system, code string }

	seen := make(map[key]struct{})
	out := &models.Expansion{Timestamp: timestamp.UTC()}

	for _, child := range children {
		if child == nil {
			continue
		}

		for _, coding := range child.Contains {
			k := key{coding.System, coding.Code}
			if _, ok := seen[k]; ok {
				continue
			}

			seen[k] = struct{}{}
			out.Contains = append(out.Contains, coding)
		}
	}

	return out
}
