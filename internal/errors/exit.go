package errors

import "errors"

// Process exit codes.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitValidationError indicates the project definition is invalid.
	ExitValidationError = 2

	// ExitNotFound indicates a definition, module output or repository is missing.
	ExitNotFound = 5

	// ExitAmbiguousBranch indicates the build branch could not be determined.
	ExitAmbiguousBranch = 7

	// ExitBundleFailed indicates at least one bundle was not written.
	ExitBundleFailed = 8
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Code int
	Err  error
	// Printed is set when the command layer already reported the error.
	Printed bool
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return ExitCodeName(e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given error and exit code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// ExitCodeFromError determines the appropriate exit code for an error.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return ExitValidationError
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrAmbiguousBranch):
		return ExitAmbiguousBranch
	case errors.Is(err, ErrBundle), errors.Is(err, ErrOrdering):
		return ExitBundleFailed
	default:
		return ExitGeneralError
	}
}

// ExitCodeName returns the name of the exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitSuccess:
		return "Success"
	case ExitGeneralError:
		return "General Error"
	case ExitValidationError:
		return "Validation Error"
	case ExitNotFound:
		return "Not Found"
	case ExitAmbiguousBranch:
		return "Ambiguous Branch"
	case ExitBundleFailed:
		return "Bundle Failed"
	default:
		return "Unknown"
	}
}
