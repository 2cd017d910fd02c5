package backend

import "fmt"

// RemoteError is a non-2xx backend response. Detail carries the backend's
// own message verbatim; nothing is retried and no partial result applied.
type RemoteError struct {
	Status int
	Detail string
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

// TransportError means the request could not complete at all. The
// underlying error's message is what the user sees.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
