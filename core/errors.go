package core

import (
	"time"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports malformed input or an out-of-range value.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// AuthorizationError is returned when the caller may not act on a resource (eg. not a duel participant).
type AuthorizationError struct {
	msg string
}

func NewAuthorizationError(msg string) error {
	return &AuthorizationError{msg: msg}
}

func (err AuthorizationError) Error() string { return err.msg }

// NotFoundError is returned for unknown duels, requests, questions or students.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{msg: msg}
}

func (err NotFoundError) Error() string { return err.msg }

// StateError is returned when an operation does not fit the current lifecycle state (eg. duel not active).
type StateError struct {
	msg string
}

func NewStateError(msg string) error {
	return &StateError{msg: msg}
}

func (err StateError) Error() string { return err.msg }

// RateLimitError tells the caller how long to wait before trying again.
type RateLimitError struct {
	Policy     string
	RetryAfter time.Duration
}

func NewRateLimitError(policy string, retryAfter time.Duration) error {
	return &RateLimitError{Policy: policy, RetryAfter: retryAfter}
}

func (err RateLimitError) Error() string {
	return "too many requests, retry in " + err.RetryAfter.Round(time.Second).String()
}

// RetryAfterSeconds rounds the remaining block duration up to whole seconds (min 1).
func (err RateLimitError) RetryAfterSeconds() int {
	secs := int((err.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
