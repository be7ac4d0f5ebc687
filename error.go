package dsp

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrInvalidBlockSize is returned when block size is not positive or
	// doesn't fit the enclosing manager.
	ErrInvalidBlockSize = errors.New("invalid block size")
	// ErrInvalidSampleRate is returned when sample rate is not positive.
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	// ErrInvalidChannelCount is returned when a channel count is negative
	// or zero where channels are required.
	ErrInvalidChannelCount = errors.New("invalid channel count")
	// ErrInvalidChannel is returned when a channel index is out of range.
	ErrInvalidChannel = errors.New("invalid channel")
)

// ErrorState accumulates configuration errors during instantiation. The
// zero value is ready to use. It's not safe for concurrent use.
type ErrorState struct {
	err *multierror.Error
}

// Fail adds err to the state. Nil errors are ignored.
func (s *ErrorState) Fail(err error) {
	if err == nil {
		return
	}
	s.err = multierror.Append(s.err, err)
}

// Failf adds a formatted error to the state.
func (s *ErrorState) Failf(format string, args ...interface{}) {
	s.Fail(fmt.Errorf(format, args...))
}

// Check adds a formatted error if ok is false. It returns ok.
func (s *ErrorState) Check(ok bool, format string, args ...interface{}) bool {
	if !ok {
		s.Failf(format, args...)
	}
	return ok
}

// HasErrors returns true if at least one error was added.
func (s *ErrorState) HasErrors() bool {
	return s.err != nil && len(s.err.Errors) > 0
}

// Err returns accumulated errors or untyped nil if there are none.
func (s *ErrorState) Err() error {
	return s.err.ErrorOrNil()
}
