package xtwallet

import (
	"errors"
	"fmt"
)

type ErrorKind string

// Wire names of the error kinds returned to dApps.
const (
	InvalidParams       ErrorKind = "INVALID_PARAMS"
	NotGranted          ErrorKind = "NOT_GRANTED"
	NotFound            ErrorKind = "NOT_FOUND"
	OperationSubmission ErrorKind = "OPERATION_SUBMISSION"
)

var (
	ErrInvalidParams       = &DAppError{Kind: InvalidParams}
	ErrNotGranted          = &DAppError{Kind: NotGranted}
	ErrNotFound            = &DAppError{Kind: NotFound}
	ErrOperationSubmission = &DAppError{Kind: OperationSubmission}
)

// DAppError is a classified failure of a dApp request. Errors not wrapped
// into a DAppError are unexpected and reach the dApp unclassified.
type DAppError struct {
	Kind ErrorKind
	Msg  string
}

func (e *DAppError) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is matches any DAppError of the same kind, so that errors.Is(err,
// ErrNotGranted) holds regardless of the message.
func (e *DAppError) Is(target error) bool {
	t, ok := target.(*DAppError)
	return ok && t.Kind == e.Kind
}

func newError(kind ErrorKind, format string, args ...any) *DAppError {
	return &DAppError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, if classified.
func KindOf(err error) (ErrorKind, bool) {
	var dappErr *DAppError
	if errors.As(err, &dappErr) {
		return dappErr.Kind, true
	}
	return "", false
}
