package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a lifecycle error for callers and for HTTP mapping.
type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindDuplicateResource      Kind = "duplicate_resource"
	KindAmountMismatch         Kind = "amount_mismatch"
	KindAccessDenied           Kind = "access_denied"
	KindQuotationExpired       Kind = "quotation_expired"
	KindVerificationFailed     Kind = "payment_verification_failed"
	KindValidation             Kind = "validation_error"
)

// Error is a typed lifecycle error. Every guard failure in the
// quotation/order/payment managers is returned as one of these —
// never silently swallowed.
type Error struct {
	Kind    Kind
	Entity  string // inquiry, quotation, order, payment
	ID      string // existing resource id for duplicates, target id otherwise
	Message string
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s %s: %s", e.Kind, e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id, Message: "not found"}
}

func InvalidTransition(entity, from, to string) *Error {
	return &Error{Kind: KindInvalidStateTransition, Entity: entity,
		Message: fmt.Sprintf("cannot transition from %q to %q", from, to)}
}

// Duplicate reports a uniqueness violation. ID carries the identifier
// of the pre-existing resource so callers can return it.
func Duplicate(entity, existingID, msg string) *Error {
	return &Error{Kind: KindDuplicateResource, Entity: entity, ID: existingID, Message: msg}
}

func AmountMismatch(entity, id, expected, got string) *Error {
	return &Error{Kind: KindAmountMismatch, Entity: entity, ID: id,
		Message: fmt.Sprintf("expected amount %s, got %s", expected, got)}
}

func AccessDenied(entity, msg string) *Error {
	return &Error{Kind: KindAccessDenied, Entity: entity, Message: msg}
}

func QuotationExpired(id string) *Error {
	return &Error{Kind: KindQuotationExpired, Entity: "quotation", ID: id, Message: "validity deadline has passed"}
}

func VerificationFailed(msg string) *Error {
	return &Error{Kind: KindVerificationFailed, Entity: "payment", Message: msg}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// KindOf extracts the Kind from an error chain, or "" if untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ExistingID returns the pre-existing resource id for duplicate errors.
func ExistingID(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindDuplicateResource {
		return e.ID
	}
	return ""
}

// HTTPStatus maps a lifecycle error to the response code the handlers
// should emit. Untyped errors map to 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidStateTransition, KindDuplicateResource:
		return http.StatusConflict
	case KindAmountMismatch, KindValidation, KindVerificationFailed:
		return http.StatusBadRequest
	case KindAccessDenied:
		return http.StatusForbidden
	case KindQuotationExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
