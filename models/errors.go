package models

import (
	"errors"
	"fmt"
)

// Error codes used in result envelopes and internal error handling.
const (
	ErrCodeLaunch        = "BROWSER_LAUNCH_FAILED"
	ErrCodeProfileLocked = "PROFILE_LOCKED"
	ErrCodeNavTimeout    = "NAVIGATION_TIMEOUT"
	ErrCodeNavigation    = "NAVIGATION_FAILED"
	ErrCodeExtraction    = "CONTENT_EXTRACTION_FAILED"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in result envelopes.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BrowseError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type BrowseError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *BrowseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BrowseError) Unwrap() error {
	return e.Err
}

// NewBrowseError creates a new BrowseError.
func NewBrowseError(code, message string, err error) *BrowseError {
	return &BrowseError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an envelope-facing ErrorDetail.
func (e *BrowseError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf extracts the error code from err, walking the wrap chain.
// Errors that are not BrowseErrors map to ErrCodeInternal.
func CodeOf(err error) string {
	var be *BrowseError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeInternal
}

// DetailOf converts any error to an ErrorDetail for envelope assembly.
func DetailOf(err error) *ErrorDetail {
	var be *BrowseError
	if errors.As(err, &be) {
		return be.ToDetail()
	}
	return &ErrorDetail{Code: ErrCodeInternal, Message: err.Error()}
}
