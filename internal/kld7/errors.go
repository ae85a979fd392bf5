package kld7

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned for any wire operation attempted before
	// the handshake has completed.
	ErrNotInitialized = errors.New("kld7: sensor not initialised")

	// ErrDisconnected is returned by Connect once the driver has said goodbye.
	ErrDisconnected = errors.New("kld7: driver disconnected")

	// ErrParameterNotFound is returned for names outside the parameter table.
	ErrParameterNotFound = errors.New("kld7: parameter not found")

	// ErrReadOnlyParameter is returned when writing a parameter with no wire code.
	ErrReadOnlyParameter = errors.New("kld7: parameter is read-only")

	// ErrUnknownLabel is returned when a label is not part of a parameter's mapping.
	ErrUnknownLabel = errors.New("kld7: unknown parameter label")
)

// FramingError reports a buffer whose length or content does not match the
// frame being decoded.
type FramingError struct {
	Op   string
	Want int
	Got  int
	Msg  string
}

func (e *FramingError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("kld7: %s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("kld7: %s: want %d bytes, got %d", e.Op, e.Want, e.Got)
}

// TransportError wraps an I/O failure on the serial connection.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("kld7: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrReadTimeout is wrapped in a TransportError when the port returns no
// data within its read timeout.
var ErrReadTimeout = errors.New("read timeout")

// IsTransportError reports whether err is, or wraps, a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
