package basecamp

import "fmt"

// ErrorKind classifies a remote failure so callers can decide whether a
// fallback strategy is worth attempting.
type ErrorKind string

const (
	ErrKindNetwork       ErrorKind = "network"
	ErrKindAuthorization ErrorKind = "authorization"
	ErrKindNotFound      ErrorKind = "not_found"
	ErrKindRemote        ErrorKind = "remote" // 5xx and everything else
)

// RemoteError is the typed failure every client operation can return.
type RemoteError struct {
	Kind      ErrorKind
	Operation string
	Err       error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("basecamp %s failed (%s): %v", e.Operation, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a RemoteError with the not_found kind.
func IsNotFound(err error) bool {
	re, ok := err.(*RemoteError)
	return ok && re.Kind == ErrKindNotFound
}
