package services

import (
	"errors"
	"fmt"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/AnshRaj112/ura-storage-backend/pkg/utils"
)

// Error kinds. Every failure returned by this package matches exactly one of them
// with errors.Is; anything that matches none is treated as an upstream failure.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrAccountLocked      = errors.New("account locked")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrUpstream           = errors.New("upstream unavailable")
	ErrMalformedShareCode = errors.New("malformed share code")
	ErrInvalidUnlockCode  = errors.New("invalid unlock code")
	ErrFetchFailed        = errors.New("fetch failed")
	ErrUnauthorized       = errors.New("unauthorized")
)

// ServiceUnavailableMessage is shown for every database or file-host failure.
const ServiceUnavailableMessage = "Service unavailable. Please check your connection or try again later."

// OpError is a failure with a message that is safe to show to the user.
type OpError struct {
	Kind    error
	Message string
}

func (e *OpError) Error() string {
	return e.Message
}

func (e *OpError) Unwrap() error {
	return e.Kind
}

func fail(kind error, message string) error {
	return &OpError{Kind: kind, Message: message}
}

func invalid(field, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &utils.ValidationError{Field: field, Message: message})
}

// UpstreamError is a failure reported by the database or the external file host.
type UpstreamError struct {
	Service    string
	StatusCode int
	Detail     string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Service + " failed"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// Describe converts err into the result envelope. A nil error yields a successful result
// carrying successMessage.
func Describe(err error, successMessage string) models.Result {
	if err == nil {
		return models.Result{Success: true, Message: successMessage}
	}

	var vErr *utils.ValidationError
	if errors.As(err, &vErr) {
		return models.Result{Message: vErr.Message}
	}

	var opErr *OpError
	if errors.As(err, &opErr) {
		return models.Result{Message: opErr.Message}
	}

	return models.Result{Message: ServiceUnavailableMessage}
}

// Kind returns the error kind err belongs to.
func Kind(err error) error {
	for _, kind := range []error{
		ErrValidation,
		ErrNotFound,
		ErrAccountLocked,
		ErrQuotaExceeded,
		ErrMalformedShareCode,
		ErrInvalidUnlockCode,
		ErrFetchFailed,
		ErrUnauthorized,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	var vErr *utils.ValidationError
	if errors.As(err, &vErr) {
		return ErrValidation
	}
	return ErrUpstream
}
