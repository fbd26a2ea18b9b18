package service

import (
	"errors"
	"strings"
)

// FailureKind tags an expected business failure so callers can tell
// "compensate and report" apart from an infrastructure fault. Anything
// that is not a *Failure is a fault.
type FailureKind string

const (
	FailureEmptyCart          FailureKind = "empty_cart"
	FailureInvalidItem        FailureKind = "invalid_item"
	FailureProductUnavailable FailureKind = "product_unavailable"
	FailureIncompleteProfile  FailureKind = "incomplete_profile"
	FailureReservation        FailureKind = "reservation_failed"
	FailureConflict           FailureKind = "conflict"
)

type Failure struct {
	Kind   FailureKind
	Detail string
	Errors []string
}

func (f *Failure) Error() string {
	if len(f.Errors) > 0 {
		return f.Detail + ": " + strings.Join(f.Errors, "; ")
	}
	return f.Detail
}

func NewFailure(kind FailureKind, detail string, errs ...string) *Failure {
	return &Failure{Kind: kind, Detail: detail, Errors: errs}
}

// AsFailure unwraps err into a business failure, if it is one.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
