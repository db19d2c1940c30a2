// Package fault classifies failures of the task board into the kinds the
// presentation layer understands. Raw transport and storage errors are wrapped
// at the operation boundary and never surface on their own.
package fault

import (
	"errors"
	"fmt"
)

// Kind is the category of a failure.
type Kind int

const (
	// SourceUnavailable means the task histories could not be read. The
	// refresh is abandoned and the previous view is kept.
	SourceUnavailable Kind = iota + 1
	// AuxiliaryUnavailable means metadata or logs could not be read. It is
	// recovered by substituting an empty collection.
	AuxiliaryUnavailable
	// EditRejected means the edit targets a frozen day or is malformed.
	EditRejected
	// WriteFailed means a task write or log touch did not succeed.
	WriteFailed
)

func (k Kind) String() string {
	switch k {
	case SourceUnavailable:
		return "source unavailable"
	case AuxiliaryUnavailable:
		return "auxiliary unavailable"
	case EditRejected:
		return "edit rejected"
	case WriteFailed:
		return "write failed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, fault.ErrEditRejected) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrSourceUnavailable    = &Error{Kind: SourceUnavailable}
	ErrAuxiliaryUnavailable = &Error{Kind: AuxiliaryUnavailable}
	ErrEditRejected         = &Error{Kind: EditRejected}
	ErrWriteFailed          = &Error{Kind: WriteFailed}
)

// New wraps err as a failure of kind k during op.
func New(k Kind, op string, err error) error {
	return &Error{Kind: k, Op: op, Err: err}
}

// Rejected builds an EditRejected failure with a message.
func Rejected(op, format string, args ...interface{}) error {
	return &Error{Kind: EditRejected, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or 0 if err is not classified.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// UserMessage is the text shown to an end user for err. SourceUnavailable and
// WriteFailed are reported generically; details go to the log.
func UserMessage(err error) string {
	switch KindOf(err) {
	case SourceUnavailable:
		return "Backend error: failed to fetch data"
	case EditRejected:
		var fe *Error
		errors.As(err, &fe)
		if fe.Err != nil {
			return fe.Err.Error()
		}
		return "edit rejected"
	case WriteFailed:
		return "Failed to update task."
	case 0:
		if err == nil {
			return ""
		}
	}
	return err.Error()
}
