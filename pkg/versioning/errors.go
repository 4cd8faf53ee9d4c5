package versioning

import (
	"errors"
	"fmt"
)

// ErrInvalidVersion indicates a version string that cannot be released.
var ErrInvalidVersion = errors.New("invalid version")

// MismatchError reports a check-version assertion that did not hold.
type MismatchError struct {
	URL      string
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	actual := e.Actual
	if actual == "" {
		actual = "<none>"
	}

	return fmt.Sprintf("version check failed for %s: expected %s, found %s", e.URL, e.Expected, actual)
}

// IsMismatch checks if an error is a version check failure.
func IsMismatch(err error) bool {
	var mismatch *MismatchError

	return errors.As(err, &mismatch)
}
