package llm

import (
	"errors"
	"fmt"
)

// TransientError marks a provider failure worth retrying (rate limits,
// upstream unavailability). Anything else is treated as permanent.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient provider error (status %d): %v", e.Status, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err (anywhere in its chain) is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
