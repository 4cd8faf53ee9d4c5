package graph

import (
	"errors"
	"fmt"
)

// ErrSkip is returned by a VisitFunc to stop the walk from descending below the node.
var ErrSkip = errors.New("skip node")

// UnresolvedError reports an owned reference whose target does not exist.
type UnresolvedError struct {
	Reference string // Edge reference that failed to resolve
	Source    string // Canonical of the artifact holding the edge
	Err       error  // Underlying repository error, if any
}

func (e *UnresolvedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("owned reference %s from %s could not be resolved: %v", e.Reference, e.Source, e.Err)
	}

	return fmt.Sprintf("owned reference %s from %s could not be resolved", e.Reference, e.Source)
}

func (e *UnresolvedError) Unwrap() error {
	return e.Err
}

// IsUnresolved checks if an error reports an unresolved owned reference.
func IsUnresolved(err error) bool {
	var unresolved *UnresolvedError

	return errors.As(err, &unresolved)
}
