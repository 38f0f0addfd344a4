// Package errors' sentinel error kinds, one per spec §7 "Kinds" entry:
// NoSpace, NotFound, Exists, NotADirectory, IsADirectory, NotEmpty,
// NameTooLong, TooBig, BadMode, IoError, Corrupt.

package errors

import (
	"fmt"
)

type KfsError string

const ErrNoSpace = KfsError("No space left on device")
const ErrNotFound = KfsError("No such file or directory")
const ErrExists = KfsError("File exists")
const ErrNotADirectory = KfsError("Not a directory")
const ErrIsADirectory = KfsError("Is a directory")
const ErrNotEmpty = KfsError("Directory not empty")
const ErrNameTooLong = KfsError("File name too long")
const ErrTooBig = KfsError("File too large")
const ErrBadMode = KfsError("Bad file descriptor mode")
const ErrIOFailed = KfsError("Input/output error")
const ErrCorrupt = KfsError("Structure needs cleaning")

func (e KfsError) Error() string {
	return string(e)
}

func (e KfsError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", string(e), message),
		originalError: e,
	}
}

func (e KfsError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: err,
	}
}

func (e KfsError) Unwrap() error {
	return nil
}
