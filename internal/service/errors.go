package service

import (
	"errors"
	"fmt"
)

const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
)

// Sentinels matched by errors.Is against a *BusinessError's code.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrInternal   = errors.New("internal error")
)

type Resource string

const ResourceTask Resource = "task"
const ResourceUser Resource = "user"

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func (b *BusinessError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return b.Code == CodeNotFound
	case ErrValidation:
		return b.Code == CodeValidation
	case ErrInternal:
		return b.Code == CodeInternal
	}
	return false
}

func ToDetail(key string, payload any) Detail {
	return Detail{Key: key, Payload: payload}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}
	return busErr
}

func NewNotFound(resource Resource, id string) *BusinessError {
	return NewBusinessError(CodeNotFound,
		fmt.Sprintf("%s %s not found", resource, id),
		ToDetail("resource", resource),
		ToDetail("id", id),
	)
}

func NewValidationError(field, reason string) *BusinessError {
	return NewBusinessError(CodeValidation,
		fmt.Sprintf("invalid value of field '%s': %s", field, reason),
		ToDetail("field", field),
		ToDetail("reason", reason),
	)
}

// NewInternal wraps an unexpected storage fault with enough context to
// reproduce it: entity kind, id and operation.
func NewInternal(resource Resource, id string, operation string, err error) *BusinessError {
	busErr := NewBusinessError(CodeInternal,
		fmt.Sprintf("%s failed", operation),
		ToDetail("resource", resource),
		ToDetail("id", id),
		ToDetail("operation", operation),
	)
	busErr.Err = err
	return busErr
}
