// Package failure defines the API-facing error variant raised by services,
// repositories, and the validation layer, and the policy that maps each
// variant to an HTTP status and JSON body.
//
// A Failure is built where the violation happens, travels up unchanged
// (wrapping with %w is fine, errors.As still finds it), and is inspected in
// exactly one place: Classify, invoked by the error middleware.
//
// Kinds:
//   - KindAuthentication: the raiser chooses the status (401, 403, 404, ...).
//   - KindValidation:     ordered per-field violations, only the first is shown.
//   - KindUniqueConstraint: the persistence layer rejected a duplicate value.
//   - KindUnclassified:   anything else; carries a message and a stack trace.
package failure

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Kind discriminates the Failure variants.
type Kind uint8

const (
	KindUnclassified Kind = iota
	KindAuthentication
	KindValidation
	KindUniqueConstraint
)

// String returns the metric/log label for k.
func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindUniqueConstraint:
		return "unique_constraint"
	default:
		return "unclassified"
	}
}

// Violation describes one invalid request field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Failure is a tagged variant. Only the fields belonging to Kind are set.
type Failure struct {
	Kind Kind

	// KindAuthentication
	Status int

	// KindAuthentication and KindUnclassified
	Message string

	// KindValidation, in detection order.
	Violations []Violation

	// KindUniqueConstraint, in the order reported by the driver.
	Fields []string

	// KindUnclassified
	Stack string

	cause error
}

// Error implements error.
func (f *Failure) Error() string {
	if f == nil {
		return "<nil failure>"
	}
	switch f.Kind {
	case KindAuthentication:
		return fmt.Sprintf("authentication failure (%d): %s", f.Status, f.Message)
	case KindValidation:
		if len(f.Violations) == 0 {
			return "validation failure"
		}
		return "validation failure: " + f.Violations[0].Message
	case KindUniqueConstraint:
		return "unique constraint violated: " + strings.Join(f.Fields, ", ")
	default:
		return f.Message
	}
}

// Unwrap exposes the original error, when one exists.
func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.cause
}

// Authentication builds a failure whose HTTP status is chosen by the caller.
func Authentication(status int, message string) *Failure {
	return &Failure{Kind: KindAuthentication, Status: status, Message: message}
}

// Unauthenticated is Authentication with 401.
func Unauthenticated(message string) *Failure {
	return Authentication(http.StatusUnauthorized, message)
}

// Forbidden is Authentication with 403.
func Forbidden(message string) *Failure {
	return Authentication(http.StatusForbidden, message)
}

// NotFound is Authentication with 404. Lookups of missing accounts use the
// raiser-chosen status variant rather than a kind of their own.
func NotFound(message string) *Failure {
	return Authentication(http.StatusNotFound, message)
}

// BadRequest is Authentication with 400.
func BadRequest(message string) *Failure {
	return Authentication(http.StatusBadRequest, message)
}

// Validation builds a validation failure from violations in detection order.
func Validation(violations ...Violation) *Failure {
	return &Failure{Kind: KindValidation, Violations: violations}
}

// Invalid is a single-violation shortcut.
func Invalid(field, message string) *Failure {
	return Validation(Violation{Field: field, Message: message})
}

// UniqueConstraint builds a duplicate-value failure. cause is the driver error
// and may be nil.
func UniqueConstraint(cause error, fields ...string) *Failure {
	return &Failure{Kind: KindUniqueConstraint, Fields: fields, cause: cause}
}

// Unclassified wraps err with a stack trace captured at the call site. Raise
// it where the unexpected error is first seen so the trace points there.
func Unclassified(err error) *Failure {
	if err == nil {
		err = errors.New("unknown error")
	}
	wrapped := oops.Code("UNCLASSIFIED").Wrap(err)
	f := &Failure{Kind: KindUnclassified, Message: err.Error(), cause: err}
	if o, ok := oops.AsOops(wrapped); ok {
		f.Stack = o.Stacktrace()
	}
	return f
}

// FromPanic converts a recovered panic value into an unclassified failure
// carrying the given stack.
func FromPanic(rec any, stack []byte) *Failure {
	var err error
	switch v := rec.(type) {
	case error:
		err = v
	default:
		err = fmt.Errorf("%v", v)
	}
	return &Failure{Kind: KindUnclassified, Message: err.Error(), Stack: string(stack), cause: err}
}

// From extracts the Failure carried by err. Errors that carry none become
// unclassified failures whose trace is derived from err itself, so the result
// does not depend on where From is called. From(nil) is an unclassified
// failure, never nil; so is an error wrapping a nil *Failure.
func From(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		if f != nil {
			return f
		}
		err = nil
	}
	if err == nil {
		return &Failure{Kind: KindUnclassified, Message: "unknown error"}
	}
	return &Failure{Kind: KindUnclassified, Message: err.Error(), Stack: chainTrace(err), cause: err}
}

// chainTrace returns the trace recorded by the first oops error in err's
// chain, or the verbose rendering of err when none was recorded.
func chainTrace(err error) string {
	if o, ok := oops.AsOops(err); ok {
		if st := o.Stacktrace(); st != "" {
			return st
		}
	}
	return fmt.Sprintf("%+v", err)
}

// Is reports whether err carries a Failure of kind k.
func Is(err error, k Kind) bool {
	var f *Failure
	return errors.As(err, &f) && f != nil && f.Kind == k
}
