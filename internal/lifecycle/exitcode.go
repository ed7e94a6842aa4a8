package lifecycle

import (
	"errors"
	"fmt"
)

// Exit codes returned by headless actions. They are propagated verbatim as the
// process exit code, so external schedulers can tell failures apart.
const (
	ExitOK              = 0
	ExitFailed          = 1
	ExitInvalidArgument = 2
	ExitProfileNotFound = 3
	ExitProfileBusy     = 4
	ExitPartialFailure  = 5
	ExitDisabled        = 6
	ExitCancelled       = 99
)

// ExitError is an error carrying the exit code an unattended run should end with.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError wraps err with an exit code.
func NewExitError(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

// ExitCodeOf maps an action result to a process exit code.
// A nil error is ExitOK; errors without an ExitError in their chain map to ExitFailed.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailed
}
