// Package businessflow contains the core business logic and use cases for event registration
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Intake errors
	ErrRequiredFieldsMissing = errors.New("missing required fields")

	// Dependency errors
	ErrDedupLookupFailed      = errors.New("failed to look up previous notifications")
	ErrCreateSubmissionFailed = errors.New("failed to store submission")
	ErrUpdateSubmissionFailed = errors.New("failed to attach registration details")
	ErrListSubmissionsFailed  = errors.New("failed to list submissions")
	ErrExportFailed           = errors.New("failed to export submissions")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsRequiredFieldsMissing(err error) bool {
	return errors.Is(err, ErrRequiredFieldsMissing)
}

func IsDedupLookupFailed(err error) bool {
	return errors.Is(err, ErrDedupLookupFailed)
}

func IsCreateSubmissionFailed(err error) bool {
	return errors.Is(err, ErrCreateSubmissionFailed)
}

// IsUpdateSubmissionFailed reports a partial registration: the submission exists without its regNo
func IsUpdateSubmissionFailed(err error) bool {
	return errors.Is(err, ErrUpdateSubmissionFailed)
}

func IsListSubmissionsFailed(err error) bool {
	return errors.Is(err, ErrListSubmissionsFailed)
}

func IsExportFailed(err error) bool {
	return errors.Is(err, ErrExportFailed)
}
