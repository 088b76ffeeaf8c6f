package xtream

import "fmt"

// TransportError marks network-level failures and retry-exhausted upstream
// statuses. It is the only error class callers should retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError marks a response body that could not be decoded.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%s: decode: %v", e.Op, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError marks rejected credentials or malformed caller input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError marks a portal object that does not exist.
type NotFoundError struct {
	Kind string // "category", "series", "stream"
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s: not found", e.Kind, e.ID) }
