package errors

import (
	"errors"
	"testing"
)

func TestPersistenceWrapsKindAndCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := Persistence(cause, "save group")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Fatalf("persistence error must not match ErrTransport")
	}
	if got, want := err.Error(), "save group: persistence error: disk full"; got != want {
		t.Fatalf("unexpected message: got %q want %q", got, want)
	}
}

func TestNilStaysNil(t *testing.T) {
	t.Parallel()

	if Persistence(nil, "op") != nil {
		t.Fatalf("expected nil persistence error")
	}
	if Transport(nil, "op") != nil {
		t.Fatalf("expected nil transport error")
	}
}
