package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidFrontmatter   = errors.New("invalid frontmatter")
	ErrDestinationCollision = errors.New("destination collision")
	ErrLocked               = errors.New("destination locked by another run")
)

// FatalError aborts a migration run. Phase names the step that failed.
type FatalError struct {
	Phase string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err as a FatalError for phase. A nil err stays nil.
func Fatal(phase string, err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Phase: phase, Err: err}
}

// IsFatal reports whether err carries a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
