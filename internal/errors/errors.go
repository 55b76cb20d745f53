package errors

import (
	"errors"
)

// Error taxonomy shared by the store, the transport adapters and the moderation core.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrPersistence  = errors.New("persistence error")
	ErrTransport    = errors.New("transport error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// Persistence marks err as a store failure. A nil err stays nil.
func Persistence(err error, op string) error {
	if err == nil {
		return nil
	}
	return &opError{kind: ErrPersistence, op: op, err: err}
}

// Transport marks err as a messaging platform failure. A nil err stays nil.
func Transport(err error, op string) error {
	if err == nil {
		return nil
	}
	return &opError{kind: ErrTransport, op: op, err: err}
}

type opError struct {
	kind error
	op   string
	err  error
}

func (e *opError) Error() string {
	return e.op + ": " + e.kind.Error() + ": " + e.err.Error()
}

func (e *opError) Unwrap() []error {
	return []error{e.kind, e.err}
}
