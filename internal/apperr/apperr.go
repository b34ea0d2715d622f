package apperr

import "errors"

// Kind classifies writer-layer failures so callers can branch on the
// category instead of matching message strings.
type Kind int

const (
	Validation Kind = iota
	Write
	Reconciliation
	Input
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Write:
		return "write"
	case Reconciliation:
		return "reconciliation"
	case Input:
		return "input"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// IsKind reports whether err (or anything it wraps) is an *Error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
