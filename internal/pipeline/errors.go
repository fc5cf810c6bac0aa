package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. The set is closed: handlers map
// kinds to HTTP statuses and callers branch on the kind, never on
// message text.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindExtraction    Kind = "extraction"
	KindPaymentIntent Kind = "payment_intent"
	KindSignature     Kind = "signature"
	KindAnalysis      Kind = "analysis"
	KindNotFound      Kind = "not_found"
)

// Error carries a kind, a caller-facing detail, and the wrapped cause.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a pipeline error.
func E(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the kind from err, or "" when err is not a pipeline
// error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
