package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	ok := errors.As(err, &validationError)
	return ok
}

func NewIndexedValidationError(index int, msg string) error {
	return &ValidationError{Msg: fmt.Sprintf("Validation error at transaction %d: %s", index, msg)}
}

var ErrInvalidAssetClass = NewValidationError("Invalid asset class")
var ErrInvalidTransactionKind = NewValidationError("Invalid transaction kind")

type ValidationErrors struct {
	Errors []error
}

func (ve *ValidationErrors) Error() string {
	errorMessages := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		errorMessages[i] = err.Error()
	}
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(errorMessages, "; "))
}

func (ve *ValidationErrors) Add(err error) {
	ve.Errors = append(ve.Errors, err)
}

func IsValidationErrors(err error) bool {
	var validationErrors *ValidationErrors
	ok := errors.As(err, &validationErrors)
	return ok
}

// NotFoundError reports a missing symbol or transaction id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func IsNotFoundError(err error) bool {
	var notFoundError *NotFoundError
	ok := errors.As(err, &notFoundError)
	return ok
}

// InsufficientLotError reports a sell that exceeds the open lots of a
// symbol. It is not a hard failure: callers surface it as a
// reconciliation warning next to whatever data could still be computed.
type InsufficientLotError struct {
	Symbol    string
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientLotError) Error() string {
	return fmt.Sprintf("insufficient lots for %s: sell of %s exceeds available %s", e.Symbol, e.Required.String(), e.Available.String())
}

func (e *InsufficientLotError) Missing() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

func IsInsufficientLotError(err error) bool {
	var insufficientLotError *InsufficientLotError
	ok := errors.As(err, &insufficientLotError)
	return ok
}

// ConversionUnavailableError reports a missing price or FX rate. Valuation
// degrades to unavailable fields, it never fails a holdings read.
type ConversionUnavailableError struct {
	Symbol string
	Reason string
}

func (e *ConversionUnavailableError) Error() string {
	return fmt.Sprintf("valuation unavailable for %s: %s", e.Symbol, e.Reason)
}

func NewConversionUnavailableError(symbol, reason string) error {
	return &ConversionUnavailableError{Symbol: symbol, Reason: reason}
}

func IsConversionUnavailableError(err error) bool {
	var conversionError *ConversionUnavailableError
	ok := errors.As(err, &conversionError)
	return ok
}
