package models

import (
	"encoding/base32"
	"errors"
	"regexp"
	"strings"
)

// MaxIDLength is the ceiling for storage identifiers.
const MaxIDLength = 64

// CanonicalIDPrefix marks identifiers that encode "url|version".
const CanonicalIDPrefix = "cv-"

var (
	idPattern = regexp.MustCompile(`^[A-Za-z0-9\-.]{1,64}$`)

	idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

	// ErrNotCanonicalID is returned when decoding an identifier that was not produced by NormalizeID.
	ErrNotCanonicalID = errors.New("identifier does not encode a canonical")
)

// IsValidID reports whether id is storage-identifier safe.
func IsValidID(id string) bool {
	return idPattern.MatchString(id)
}

// NormalizeID derives a storage id for an artifact. It returns ok=false when neither
// the readable nor the encoded form fits, in which case the current id is returned.
func NormalizeID(a *Artifact) (string, bool) {
	readable := URLTail(a.URL)
	if a.Version != "" {
		readable += "-" + a.Version
	}

	if IsValidID(readable) {
		return readable, true
	}

	encoded := CanonicalIDPrefix + strings.ToLower(idEncoding.EncodeToString([]byte(a.Canonical().String())))
	if IsValidID(encoded) {
		return encoded, true
	}

	return a.ID, false
}

// DecodeCanonicalID reverses the cv- form produced by NormalizeID.
func DecodeCanonicalID(id string) (Canonical, error) {
	rest, ok := strings.CutPrefix(id, CanonicalIDPrefix)
	if !ok {
		return Canonical{}, ErrNotCanonicalID
	}

	raw, err := idEncoding.DecodeString(strings.ToUpper(rest))
	if err != nil {
		return Canonical{}, errors.Join(ErrNotCanonicalID, err)
	}

	return ParseCanonical(string(raw)), nil
}
