package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/datastore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StoreError wraps any failure that came back from a store (or a reference directory that
// sits on one). It unwraps to the cause, so errors.Is(err, ErrDuplicate) etc. still work.
type StoreError struct {
	Op   string
	ID   string
	Code codes.Code
	Err  error
}

func (e *StoreError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store %s [%s]: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("store %s(%s) [%s]: %v", e.Op, e.ID, e.Code, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Timeout reports whether the operation ran out of time, either locally or on the server.
func (e *StoreError) Timeout() bool {
	return e.Code == codes.DeadlineExceeded || errors.Is(e.Err, context.DeadlineExceeded)
}

// Wrap returns nil for a nil error, and passes StoreErrors through untouched.
func Wrap(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, ID: id, Code: classify(err), Err: err}
}

func classify(err error) codes.Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, ErrDuplicate):
		return codes.AlreadyExists
	case errors.Is(err, ErrArchived):
		return codes.FailedPrecondition
	case errors.Is(err, ErrNotActive):
		return codes.NotFound
	case errors.Is(err, ErrChanged), errors.Is(err, datastore.ErrConcurrentTransaction):
		return codes.Aborted
	}
	return status.Code(err)
}

// IsTimeout is a convenience for errors that may or may not be StoreErrors.
func IsTimeout(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Timeout()
}
