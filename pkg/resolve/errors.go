package resolve

import (
	"fmt"
)

// ResolutionError is recorded on a failed entry. It is a diagnostic and is
// never returned to the caller of GetOrFetch.
type ResolutionError struct {
	Key   string
	Cause error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve '%s': %v", e.Key, e.Cause)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}
