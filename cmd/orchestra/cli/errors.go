package cli

// SilentError wraps an error that has already been reported to the user.
// main.go checks for it to avoid printing the same failure twice.
type SilentError struct {
	err error
}

// NewSilentError wraps err so main.go skips printing it.
func NewSilentError(err error) *SilentError {
	return &SilentError{err: err}
}

func (e *SilentError) Error() string {
	return e.err.Error()
}

func (e *SilentError) Unwrap() error {
	return e.err
}
