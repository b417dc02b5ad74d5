// Package apierror provides the typed domain error kinds used across the
// service layer and the standardized error envelopes returned to clients.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Kind classifies a domain failure. Handlers map kinds to HTTP status codes;
// services never deal in status codes directly.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindInvalidTransition
	KindInsufficientStock
	KindOverWithdraw
)

// Error is the structured failure result produced at operation boundaries.
// It carries enough context (entity ids, requested vs available quantities)
// for the caller to render a user-facing message.
type Error struct {
	Kind   Kind
	Msg    string
	Fields map[string]string
}

func (e *Error) Error() string { return e.Msg }

// As unwraps err into *Error when possible.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// HTTPStatus maps a domain error to its response status. Unknown errors are
// treated as internal.
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidTransition, KindInsufficientStock:
		return http.StatusConflict
	case KindOverWithdraw:
		// Reservation bookkeeping bug, not a user error. Surface it cleanly
		// but as a server-side failure.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ── Constructors ─────────────────────────────────────────────────────────────

// InsufficientStock reports a reserve/confirm that requested more than the
// entry's available quantity.
func InsufficientStock(productID, warehouseID uuid.UUID, requested, available int) *Error {
	return &Error{
		Kind: KindInsufficientStock,
		Msg: fmt.Sprintf("insufficient stock for product %s in warehouse %s: requested %d, available %d",
			productID, warehouseID, requested, available),
		Fields: map[string]string{
			"product_id":   productID.String(),
			"warehouse_id": warehouseID.String(),
			"requested":    fmt.Sprintf("%d", requested),
			"available":    fmt.Sprintf("%d", available),
		},
	}
}

// OverWithdraw reports a withdrawal exceeding the reserved quantity.
func OverWithdraw(productID, warehouseID uuid.UUID, requested, reserved int) *Error {
	return &Error{
		Kind: KindOverWithdraw,
		Msg: fmt.Sprintf("withdraw of %d exceeds reserved %d for product %s in warehouse %s",
			requested, reserved, productID, warehouseID),
		Fields: map[string]string{
			"product_id":   productID.String(),
			"warehouse_id": warehouseID.String(),
			"requested":    fmt.Sprintf("%d", requested),
			"reserved":     fmt.Sprintf("%d", reserved),
		},
	}
}

// InvalidTransition reports an operation attempted against an entity in the
// wrong state.
func InvalidTransition(entity, current, op string) *Error {
	return &Error{
		Kind: KindInvalidTransition,
		Msg:  fmt.Sprintf("%s cannot be %s while %s", entity, op, current),
		Fields: map[string]string{
			"entity": entity,
			"status": current,
		},
	}
}

// NotFound reports a missing entity.
func NotFound(entity string, id any) *Error {
	return &Error{
		Kind:   KindNotFound,
		Msg:    fmt.Sprintf("%s %v not found", entity, id),
		Fields: map[string]string{"entity": entity, "id": fmt.Sprintf("%v", id)},
	}
}

// Validation reports malformed input with per-field reasons.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Msg: "validation failed", Fields: fields}
}

// Validationf reports a single-field validation failure.
func Validationf(field, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Kind:   KindValidation,
		Msg:    msg,
		Fields: map[string]string{field: msg},
	}
}

// ── Response envelopes ───────────────────────────────────────────────────────

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// FromError builds the response envelope for a domain error.
func FromError(err error) *APIError {
	if e, ok := As(err); ok {
		return &APIError{Detail: e.Msg, Fields: e.Fields}
	}
	return &APIError{Detail: err.Error()}
}

// NewValidation wraps multiple field errors.
func NewValidation(fields map[string]string) *APIError {
	return &APIError{Detail: "validation failed", Fields: fields}
}
