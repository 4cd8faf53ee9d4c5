package versioning

import (
	"strings"

	"github.com/dukex/curator/pkg/models"
)

// SplitPackageTag splits a "packageId#version" tag.
func SplitPackageTag(tag string) (string, string, bool) {
	id, version, ok := strings.Cut(tag, "#")
	if !ok || id == "" || version == "" {
		return "", "", false
	}

	return id, version, true
}

// PackageResolver versions unversioned references through the declared-package version
// map of an umbrella artifact.
type PackageResolver struct {
	versions map[string]string
}

// NewPackageResolver creates a resolver backed by the umbrella's declared package versions.
func NewPackageResolver(umbrella *models.Artifact) *PackageResolver {
	versions := map[string]string{}
	if umbrella != nil {
		for id, version := range umbrella.PackageVersions {
			versions[id] = version
		}
	}

	return &PackageResolver{versions: versions}
}

// Resolve returns the reference pinned to the version the umbrella declares for the
// target's source package. Versioned references, targets without a package tag and
// packages missing from the map are returned unchanged.
func (r *PackageResolver) Resolve(ref models.Canonical, target *models.Artifact) (models.Canonical, bool) {
	if ref.IsVersioned() || target == nil || target.SourcePackageTag == "" {
		return ref, false
	}

	packageID, _, ok := SplitPackageTag(target.SourcePackageTag)
	if !ok {
		return ref, false
	}

	version, ok := r.versions[packageID]
	if !ok || version == "" {
		return ref, false
	}

	return ref.WithVersion(version), true
}
