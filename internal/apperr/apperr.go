// Package apperr defines the recoverable error kinds returned by the store engine.
// Callers match kinds with errors.Is and extract details with errors.As.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrParentInactive    = errors.New("parent inactive")
	ErrHierarchyMismatch = errors.New("hierarchy mismatch")
	ErrHasDependents     = errors.New("has dependents")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductInactive   = errors.New("product inactive")
	ErrEmptyCart         = errors.New("empty cart")
	ErrCheckoutFailed    = errors.New("checkout failed")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrUseCancelInstead  = errors.New("use cancel instead")
	ErrValidation        = errors.New("validation error")
)

// Error carries a kind plus a human readable message
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity
func NotFound(entity string, id uint) error {
	return newError(ErrNotFound, "%s %d not found", entity, id)
}

// ParentInactive reports a create or move below an inactive parent
func ParentInactive(entity string, id uint) error {
	return newError(ErrParentInactive, "%s %d is inactive", entity, id)
}

// HierarchyMismatch reports a subcategory that does not belong to the given category
func HierarchyMismatch(subcategoryID, categoryID uint) error {
	return newError(ErrHierarchyMismatch, "subcategory %d does not belong to category %d", subcategoryID, categoryID)
}

// HasDependents reports a delete blocked by child records
func HasDependents(entity string, id uint, dependents string, count int64) error {
	return newError(ErrHasDependents, "%s %d has %d %s; deactivate it instead", entity, id, count, dependents)
}

// ProductInactive reports an inactive product
func ProductInactive(productID uint) error {
	return newError(ErrProductInactive, "product %d is inactive", productID)
}

// EmptyCart reports a checkout without lines
func EmptyCart(userID uint) error {
	return newError(ErrEmptyCart, "cart of user %d is empty", userID)
}

// IllegalTransition reports an order status change outside the transition table
func IllegalTransition(orderID uint, from, to string) error {
	return newError(ErrIllegalTransition, "order %d cannot move from %s to %s", orderID, from, to)
}

// UseCancelInstead is returned for every order deletion
func UseCancelInstead(orderID uint) error {
	return newError(ErrUseCancelInstead, "order %d cannot be deleted, cancel it instead", orderID)
}

// InsufficientStockError reports a quantity above the units on hand
type InsufficientStockError struct {
	ProductID uint `json:"product_id"`
	Available int  `json:"available"`
	Requested int  `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: %d available, %d requested", e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// InsufficientStock builds an InsufficientStockError
func InsufficientStock(productID uint, available, requested int) error {
	return &InsufficientStockError{ProductID: productID, Available: available, Requested: requested}
}

// LineFailure is one cart line that did not pass checkout validation
type LineFailure struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
	Err       error  `json:"-"`
}

// CheckoutFailedError lists every cart line that blocked a checkout
type CheckoutFailedError struct {
	Lines []LineFailure `json:"lines"`
}

func (e *CheckoutFailedError) Error() string {
	reasons := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		reasons = append(reasons, l.Reason)
	}
	return "checkout failed: " + strings.Join(reasons, "; ")
}

func (e *CheckoutFailedError) Is(target error) bool {
	return target == ErrCheckoutFailed
}

// Unwrap exposes each line cause so errors.Is(err, ErrInsufficientStock) works
func (e *CheckoutFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Lines))
	for _, l := range e.Lines {
		if l.Err != nil {
			errs = append(errs, l.Err)
		}
	}
	return errs
}

// FieldError is one violated constraint on one field
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError collects every failing field of an input
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Add appends a field failure
func (e *ValidationError) Add(field, rule, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Rule: rule, Message: message})
}

// OrNil returns e when at least one field failed, nil otherwise
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Invalid builds a single-field ValidationError
func Invalid(field, rule, message string) error {
	v := &ValidationError{}
	v.Add(field, rule, message)
	return v
}

// HTTPStatus maps an engine error to the status code the HTTP adapter answers with
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrCheckoutFailed),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrProductInactive),
		errors.Is(err, ErrParentInactive),
		errors.Is(err, ErrHierarchyMismatch),
		errors.Is(err, ErrEmptyCart):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrHasDependents),
		errors.Is(err, ErrIllegalTransition),
		errors.Is(err, ErrUseCancelInstead):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Kind returns the short name of the error kind, or "internal"
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrCheckoutFailed):
		return "checkout_failed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrParentInactive):
		return "parent_inactive"
	case errors.Is(err, ErrHierarchyMismatch):
		return "hierarchy_mismatch"
	case errors.Is(err, ErrHasDependents):
		return "has_dependents"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrProductInactive):
		return "product_inactive"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrIllegalTransition):
		return "illegal_transition"
	case errors.Is(err, ErrUseCancelInstead):
		return "use_cancel_instead"
	case errors.Is(err, ErrValidation):
		return "validation"
	}
	return "internal"
}
