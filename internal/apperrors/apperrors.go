// Package apperrors defines the error codes surfaced to the CLI.
package apperrors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeConfiguration      Code = "CONFIGURATION"
	CodeValidation         Code = "VALIDATION"
	CodeDatasetNotFound    Code = "DATASET_NOT_FOUND"
	CodeUpstreamFetch      Code = "UPSTREAM_FETCH"
	CodeTimeZoneResolution Code = "TIMEZONE_RESOLUTION"
)

// AppError carries a code, a human message and an optional cause.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches any *AppError with the same code, so callers can test
// errors.Is(err, &AppError{Code: CodeValidation}).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// DatasetNotFoundError is returned when a local read finds no snapshot.
type DatasetNotFoundError struct {
	Name string
}

func (e *DatasetNotFoundError) Error() string {
	return fmt.Sprintf("local dataset %q not found; run \"mngtool linear sync\" or re-run with --remote", e.Name)
}

func Configuration(msg string) error {
	return &AppError{Code: CodeConfiguration, Message: msg}
}

func Validation(format string, args ...any) error {
	return &AppError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps a failed call to an external service.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) && ae.Code == CodeUpstreamFetch {
		return err
	}
	return &AppError{Code: CodeUpstreamFetch, Message: op, Err: err}
}

func TimeZoneResolution(msg string) error {
	return &AppError{Code: CodeTimeZoneResolution, Message: msg}
}

// CodeOf reports the code of err, or "" when err carries none.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	var nf *DatasetNotFoundError
	if errors.As(err, &nf) {
		return CodeDatasetNotFound
	}
	return ""
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
