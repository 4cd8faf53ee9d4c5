// Package roles assigns semantic role tags to dependency edges.
package roles

import (
	"slices"
	"strings"

	"github.com/dukex/curator/pkg/models"
)

// Classifier assigns role tags to an edge. The result is never empty.
type Classifier interface {
	Classify(edge *models.Edge, source, target *models.Artifact) []string
}

// StructuralClassifier tags every edge "default" and adds "key" when a structural profile
// binds the target value set to one of its key elements.
type StructuralClassifier struct{}

// NewClassifier creates the default classifier.
func NewClassifier() *StructuralClassifier {
	return &StructuralClassifier{}
}

// Classify only looks at the source kind, the target kind and the source's element
// bindings. Names, titles, URLs and the declared location of the edge play no part.
func (c *StructuralClassifier) Classify(edge *models.Edge, source, target *models.Artifact) []string {
	tags := []string{models.RoleDefault}

	if source == nil || !source.Kind.IsStructuralProfile() {
		return tags
	}

	targetURL, targetKind := targetIdentity(edge, target)
	if targetKind != models.KindValueSet || targetURL == "" {
		return tags
	}

	for _, el := range KeyElements(source.Elements) {
		if el.Binding != nil && models.SameURL(el.Binding.ValueSet, targetURL) {
			return append(tags, models.RoleKey)
		}
	}

	return tags
}

func targetIdentity(edge *models.Edge, target *models.Artifact) (string, models.Kind) {
	if target != nil {
		return target.URL, target.Kind
	}

	if edge == nil {
		return "", ""
	}

	return edge.Target().URL, edge.TargetKind
}

// KeyElements returns the elements that are must-support, modifiers or slices, plus any
// mandatory or constrained descendant of such an element.
func KeyElements(elements []models.Element) []models.Element {
	var (
		key     []models.Element
		anchors []string
	)

	for _, el := range elements {
		if isAnchor(el) {
			key = append(key, el)
			anchors = append(anchors, el.Path)

			continue
		}

		if (el.Min > 0 || el.Constrained) && slices.ContainsFunc(anchors, func(anchor string) bool {
			return strings.HasPrefix(el.Path, anchor+".")
		}) {
			key = append(key, el)
		}
	}

	return key
}

func isAnchor(el models.Element) bool {
	return el.MustSupport || el.IsModifier || el.SliceName != ""
}
