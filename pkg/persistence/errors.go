// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrArtifactNotFound indicates an artifact was not found by the given identifier.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrArtifactAlreadyExists indicates an artifact with the same identity or id already exists.
	ErrArtifactAlreadyExists = errors.New("artifact already exists")

	// ErrAssessmentNotFound indicates an assessment was not found by the given identifier.
	ErrAssessmentNotFound = errors.New("assessment not found")

	// ErrInvalidWrite indicates a transaction write that cannot be applied as given.
	ErrInvalidWrite = errors.New("invalid write")

	// ErrInvalidDocument indicates a stored document that fails schema validation.
	ErrInvalidDocument = errors.New("invalid document")
)

// ArtifactError wraps artifact-related errors with additional context.
type ArtifactError struct {
	Op      string // Operation being performed (e.g., "FindExact", "SubmitTransaction")
	URL     string // Canonical URL if applicable
	Version string // Version if applicable
	ID      string // Storage id if applicable
	Err     error  // Underlying error
}

func (e *ArtifactError) Error() string {
	target := e.ID
	if e.URL != "" {
		target = e.URL
		if e.Version != "" {
			target += "|" + e.Version
		}
	}

	return fmt.Sprintf("%s operation failed for artifact %s: %v", e.Op, target, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for artifact errors.
func (e *ArtifactError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewArtifactError creates a new artifact error keyed by canonical identity.
func NewArtifactError(op, url, version string, err error) *ArtifactError {
	return &ArtifactError{
		Op:      op,
		URL:     url,
		Version: version,
		Err:     err,
	}
}

// NewArtifactIDError creates a new artifact error keyed by storage id.
func NewArtifactIDError(op, id string, err error) *ArtifactError {
	return &ArtifactError{
		Op:  op,
		ID:  id,
		Err: err,
	}
}

// IsArtifactNotFound checks if an error indicates an artifact was not found.
func IsArtifactNotFound(err error) bool {
	return errors.Is(err, ErrArtifactNotFound)
}

// IsArtifactAlreadyExists checks if an error indicates a duplicate artifact.
func IsArtifactAlreadyExists(err error) bool {
	return errors.Is(err, ErrArtifactAlreadyExists)
}

// IsAssessmentNotFound checks if an error indicates an assessment was not found.
func IsAssessmentNotFound(err error) bool {
	return errors.Is(err, ErrAssessmentNotFound)
}

// IsInvalidWrite checks if an error indicates a malformed transaction write.
func IsInvalidWrite(err error) bool {
	return errors.Is(err, ErrInvalidWrite)
}
