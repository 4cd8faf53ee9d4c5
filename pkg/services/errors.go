// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/curator/pkg/graph"
	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/versioning"
)

// Operation failures. Every error returned by a lifecycle or package operation matches
// exactly one of these, except infrastructure failures from the repository.
var (
	// ErrPreconditionFailed covers wrong status, missing approval and version conflicts (412).
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrUnprocessableInput covers malformed versions and missing or invalid parameters (422).
	ErrUnprocessableInput = errors.New("unprocessable input")

	// ErrResourceNotFound covers owned references that cannot be resolved (404).
	ErrResourceNotFound = errors.New("resource not found")
)

// Error codes carried by ServiceError.
const (
	CodeInvalidStatus        = "invalid-status"
	CodeNotApproved          = "not-approved"
	CodeVersionConflict      = "version-conflict"
	CodeDuplicate            = "duplicate"
	CodeExperimental         = "experimental"
	CodeCapability           = "capability"
	CodeInvalidVersion       = "invalid-version"
	CodeInvalidParameter     = "invalid-parameter"
	CodeTargetMismatch       = "target-mismatch"
	CodeUnresolvedOwned      = "unresolved-owned-reference"
	CodeUnresolvedDependency = "unresolved-dependency"
	CodeVersionCheck         = "version-check"
	CodeIdentifierTooLong    = "identifier"
	CodeExpansion            = "expansion"
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsPreconditionFailed checks if an error should be reported as HTTP 412.
func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed)
}

// IsUnprocessableInput checks if an error should be reported as HTTP 422.
func IsUnprocessableInput(err error) bool {
	return errors.Is(err, ErrUnprocessableInput)
}

// IsResourceNotFound checks if an error should be reported as HTTP 404.
func IsResourceNotFound(err error) bool {
	return errors.Is(err, ErrResourceNotFound)
}

// IsDegraded reports whether a package completed with diagnostics instead of failing.
func IsDegraded(bundle *models.Bundle) bool {
	return bundle != nil && bundle.IsDegraded()
}

func preconditionFailed(op, code, format string, args ...any) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: fmt.Sprintf(format, args...), Err: ErrPreconditionFailed}
}

func unprocessable(op, code, format string, args ...any) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: fmt.Sprintf(format, args...), Err: ErrUnprocessableInput}
}

// classify maps errors from the lower layers onto the service taxonomy. Errors that are
// already classified, and infrastructure failures, pass through unchanged.
func classify(op string, err error) error {
	var (
		serviceErr *ServiceError
		unresolved *graph.UnresolvedError
		mismatch   *versioning.MismatchError
	)

	switch {
	case err == nil:
		return nil
	case errors.As(err, &serviceErr):
		return err
	case errors.As(err, &unresolved):
		return &ServiceError{Op: op, Code: CodeUnresolvedOwned, Message: unresolved.Error(), Err: errors.Join(ErrResourceNotFound, err)}
	case errors.As(err, &mismatch):
		return &ServiceError{Op: op, Code: CodeVersionCheck, Message: mismatch.Error(), Err: errors.Join(ErrPreconditionFailed, err)}
	case errors.Is(err, versioning.ErrInvalidVersion):
		return &ServiceError{Op: op, Code: CodeInvalidVersion, Message: err.Error(), Err: errors.Join(ErrUnprocessableInput, err)}
	case persistence.IsArtifactAlreadyExists(err):
		return &ServiceError{Op: op, Code: CodeDuplicate, Message: err.Error(), Err: errors.Join(ErrPreconditionFailed, err)}
	default:
		return err
	}
}
