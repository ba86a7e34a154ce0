package domain

import "errors"

var (
	ErrDeviceIDMissing     = errors.New("device id missing")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrSOSInFlight         = errors.New("sos already in flight")
	ErrDeviceNotFound      = errors.New("device not found")
	ErrViewNotFound        = errors.New("view not found")
	ErrViewClosed          = errors.New("view closed")
)

// RemoteError is a backend failure that carries a message fit for the
// operator.
type RemoteError struct {
	Op      string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Message
}

func (e *RemoteError) Unwrap() error { return e.Err }
