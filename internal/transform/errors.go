package transform

import (
	"errors"
	"fmt"
)

// Kind classifies a transform failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindValidation
	KindTimeout
	KindToolFailure
	KindLookup
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindTimeout:
		return "timeout"
	case KindToolFailure:
		return "tool failure"
	case KindLookup:
		return "lookup"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Sentinels usable with errors.Is.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrToolFailure   = &Error{Kind: KindToolFailure}
	ErrLookup        = &Error{Kind: KindLookup}
	ErrUnavailable   = &Error{Kind: KindUnavailable}
)

// Error is the typed failure returned by every executor.
type Error struct {
	Kind Kind
	// Op names the failing operation, e.g. "pdfrenderer transform".
	Op  string
	Msg string
	// Output holds diagnostic text captured from the tool (stderr or stdout).
	Output string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Output != "" {
		msg = msg + "\n" + e.Output
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match when target is an *Error of the same kind carrying no
// message, which is the shape of the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Configurationf builds a KindConfiguration error.
func Configurationf(op string, err error, format string, args ...any) *Error {
	return newError(KindConfiguration, op, err, format, args...)
}

// Validationf builds a KindValidation error.
func Validationf(op string, format string, args ...any) *Error {
	return newError(KindValidation, op, nil, format, args...)
}

// Timeoutf builds a KindTimeout error.
func Timeoutf(op string, format string, args ...any) *Error {
	return newError(KindTimeout, op, nil, format, args...)
}

// ToolFailure builds a KindToolFailure error carrying the tool's diagnostic output.
func ToolFailure(op string, output string, err error) *Error {
	return &Error{Kind: KindToolFailure, Op: op, Msg: "transform failed", Output: output, Err: err}
}

// Lookupf builds a KindLookup error.
func Lookupf(op string, format string, args ...any) *Error {
	return newError(KindLookup, op, nil, format, args...)
}

// Unavailable builds a KindUnavailable error.
func Unavailable(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Op: op, Msg: "tool unavailable", Err: err}
}
