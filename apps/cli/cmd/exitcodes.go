package cmd

// Exit codes for apisuite CLI
const (
	// ExitSuccess indicates all tests passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more cases failed or errored
	ExitTestFailure = 1

	// ExitFixtureError indicates a fixture file could not be loaded
	ExitFixtureError = 2

	// ExitConfigError indicates a configuration or database error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries an exit code out of a command so Execute can honour it
// after cobra has printed the error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}
