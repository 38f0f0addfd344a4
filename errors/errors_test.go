package errors

import (
	"errors"
	"testing"
)

func TestWithMessageWrapsSentinel(t *testing.T) {
	wrapped := ErrNotFound.WithMessage("looking up \"a\"")
	if wrapped.Error() == "" {
		t.Fatal("expected a non-empty message")
	}
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatal("expected errors.Is to find the wrapped sentinel")
	}
}

func TestWrapErrorKeepsCause(t *testing.T) {
	cause := errors.New("disk read failed")
	wrapped := ErrIOFailed.WrapError(cause)
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected errors.Is to find the original cause")
	}
}
