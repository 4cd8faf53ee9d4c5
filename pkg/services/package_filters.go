package services

import (
	"slices"
	"strings"

	"github.com/dukex/curator/pkg/models"
)

// Filter tokens accepted by Include and Exclude, besides IncludeArtifact and kind names.
const (
	FilterAll         = "all"
	FilterTerminology = "terminology"
	FilterTests       = "tests"
	FilterExamples    = "examples"
	rolePrefix        = "role="
)

// filter returns the manifest followed by the entries selected by Include and not
// removed by Exclude. An unknown token selects nothing.
func (r *packageRun) filter() []*models.BundleEntry {
	out := []*models.BundleEntry{r.manifest}

	for _, entry := range r.entries {
		if len(r.params.Include) > 0 && !matchesAny(r.params.Include, entry) {
			continue
		}

		if matchesAny(r.params.Exclude, entry) {
			continue
		}

		out = append(out, entry)
	}

	return out
}

func matchesAny(tokens []string, entry *models.BundleEntry) bool {
	return slices.ContainsFunc(tokens, func(token string) bool {
		return matches(token, entry)
	})
}

func matches(token string, entry *models.BundleEntry) bool {
	a := entry.Artifact

	switch token {
	case FilterAll:
		return true
	case IncludeArtifact:
		return false
	case FilterTerminology:
		return a.Kind.IsTerminology()
	case FilterTests:
		return a.Usage == models.UsageTest || slices.Contains(entry.Roles, models.RoleTest)
	case FilterExamples:
		return a.Usage == models.UsageExample || slices.Contains(entry.Roles, models.RoleExample)
	}

	if role, ok := strings.CutPrefix(token, rolePrefix); ok {
		return slices.Contains(entry.Roles, role)
	}

	kind := models.Kind(token)

	return kind.IsKnown() && a.Kind == kind
}
