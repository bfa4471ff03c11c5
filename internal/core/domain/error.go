package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInternal = errors.New("internal error")

	// * Data errors.
	ErrDataNotFound    = errors.New("data not found")
	ErrNoUpdatedData   = errors.New("no data to update")
	ErrConflictingData = errors.New("data conflicts with existing data in unique column")

	// * Communication errors.
	ErrBadRequest = errors.New("error parsing request")

	// * Authority errors.
	ErrTokenCreation              = errors.New("error creating token")
	ErrExpiredToken               = errors.New("access token has expired")
	ErrInvalidToken               = errors.New("access token is invalid")
	ErrEmptyAuthorizationHeader   = errors.New("authorization header is not provided")
	ErrInvalidAuthorizationHeader = errors.New("authorization header format is invalid")
	ErrInvalidAuthorizationType   = errors.New("authorization type is not supported")
	ErrForbidden                  = errors.New("user is forbidden to access the resource")

	// * Business errors.
	ErrValidation            = errors.New("validation failed")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrDuplicateReference    = errors.New("could not generate a unique reference")
	ErrSignatureVerification = errors.New("webhook signature verification failed")
	ErrUnknownReference      = errors.New("unknown payment reference")
	ErrGateway               = errors.New("payment gateway failure")
	ErrAlreadyPaid           = errors.New("order is already fully paid")
	ErrPaymentInProgress     = errors.New("a payment for the order is already in progress")
	ErrInvalidTransition     = errors.New("order status transition is not allowed")
	ErrMalformedWebhook      = errors.New("webhook payload is malformed")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

type InsufficientStockError struct {
	ProductID uint64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type GatewayError struct {
	Reference  string
	RetryAfter time.Duration
	Err        error
}

func (e *GatewayError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("gateway error for %s (retry after %s): %v", e.Reference, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("gateway error for %s: %v", e.Reference, e.Err)
}

func (e *GatewayError) Is(target error) bool {
	return target == ErrGateway
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
