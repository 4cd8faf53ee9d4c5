// Package versioning implements release version rules and the version resolution policies
// applied to canonical references.
package versioning

import (
	"fmt"
	"strings"

	"github.com/dukex/curator/pkg/models"
	"golang.org/x/mod/semver"
)

// DraftSuffix marks a version as a working copy.
const DraftSuffix = "-draft"

const illegalChars = `/\|`

// IsSemver reports whether v is a full major.minor.patch semantic version.
func IsSemver(v string) bool {
	prefixed := "v" + v

	return semver.IsValid(prefixed) && semver.Canonical(prefixed) == prefixed
}

// ValidateReleaseVersion checks that v can be used as a release version: no illegal
// characters, no draft suffix and a full semantic version.
func ValidateReleaseVersion(v string) error {
	if v == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidVersion)
	}

	if strings.ContainsAny(v, illegalChars) {
		return fmt.Errorf("%w: %q contains an illegal character", ErrInvalidVersion, v)
	}

	if strings.Contains(v, DraftSuffix) {
		return fmt.Errorf("%w: %q must not contain %s", ErrInvalidVersion, v, DraftSuffix)
	}

	if !IsSemver(v) {
		return fmt.Errorf("%w: %q is not a semantic version", ErrInvalidVersion, v)
	}

	return nil
}

// IsDraft reports whether v carries the draft suffix.
func IsDraft(v string) bool {
	return strings.HasSuffix(v, DraftSuffix)
}

// StripDraft removes a trailing draft suffix.
func StripDraft(v string) string {
	return strings.TrimSuffix(v, DraftSuffix)
}

// DraftVersion returns the working-copy version for a release version.
func DraftVersion(v string) string {
	return StripDraft(v) + DraftSuffix
}

// Compare orders two artifact versions. Semantic versions sort above anything else;
// ties fall back to the last modification time.
func Compare(a, b *models.Artifact) int {
	av, bv := "v"+a.Version, "v"+b.Version
	aValid, bValid := semver.IsValid(av), semver.IsValid(bv)

	switch {
	case aValid && !bValid:
		return 1
	case !aValid && bValid:
		return -1
	case aValid && bValid:
		if c := semver.Compare(av, bv); c != 0 {
			return c
		}
	}

	return a.LastModified.Compare(b.LastModified)
}

// Latest returns the highest-ordered artifact, or nil for an empty slice.
func Latest(artifacts []*models.Artifact) *models.Artifact {
	var latest *models.Artifact

	for _, artifact := range artifacts {
		if latest == nil || Compare(artifact, latest) > 0 {
			latest = artifact
		}
	}

	return latest
}
