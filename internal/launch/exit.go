package launch

import (
	"errors"
	"fmt"
)

// ExitError carries the exit status the launcher propagates to its caller:
// the user-code status when user code failed, otherwise the watcher's.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitStatus returns the exit code embedded in err, if any.
func ExitStatus(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

func exitFailure(code int, err error) error {
	if code <= 0 {
		code = 1
	}
	return &ExitError{Code: code, Err: err}
}
