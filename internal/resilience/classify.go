// Package resilience wraps every external call the orchestration core
// makes. Raw errors are normalized into a seven-category taxonomy before
// any retry decision; recoverable categories are retried with exponential
// backoff and jitter behind a per-service circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Category is the normalized failure class of an external-call error.
type Category string

const (
	CategoryUserInput          Category = "USER_INPUT"
	CategoryAuthentication     Category = "AUTHENTICATION"
	CategoryRateLimit          Category = "RATE_LIMIT"
	CategoryServiceUnavailable Category = "SERVICE_UNAVAILABLE"
	CategoryTimeout            Category = "TIMEOUT"
	CategoryBusinessLogic      Category = "BUSINESS_LOGIC"
	CategoryTechnical          Category = "TECHNICAL"
)

// Retryable reports whether the category is recovered by retrying.
func (c Category) Retryable() bool {
	switch c {
	case CategoryRateLimit, CategoryServiceUnavailable, CategoryTimeout:
		return true
	default:
		return false
	}
}

// ClassifiedError is a raw error normalized into the taxonomy.
type ClassifiedError struct {
	Category  Category
	Service   string
	Retryable bool
	Err       error
}

func (e *ClassifiedError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Category, e.Service, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// NewError builds a pre-classified error. Retryability follows the
// category default.
func NewError(category Category, err error) *ClassifiedError {
	return &ClassifiedError{Category: category, Retryable: category.Retryable(), Err: err}
}

// statusCoder is implemented by errors that carry an HTTP status, such as
// llm.APIError. Kept as a local interface so this package stays free of
// upward imports.
type statusCoder interface {
	HTTPStatus() int
}

// Classify normalizes any error into a ClassifiedError. Already-classified
// errors pass through unchanged.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{Category: CategoryTimeout, Retryable: true, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		// Caller abandoned the operation; retrying would be wasted work.
		return &ClassifiedError{Category: CategoryTechnical, Retryable: false, Err: err}
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return classifyStatus(sc.HTTPStatus(), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ClassifiedError{Category: CategoryTimeout, Retryable: true, Err: err}
	}

	return classifyMessage(err)
}

func classifyStatus(status int, err error) *ClassifiedError {
	switch {
	case status == 400 || status == 404 || status == 422:
		return &ClassifiedError{Category: CategoryUserInput, Retryable: false, Err: err}
	case status == 401 || status == 403:
		return &ClassifiedError{Category: CategoryAuthentication, Retryable: false, Err: err}
	case status == 408:
		return &ClassifiedError{Category: CategoryTimeout, Retryable: true, Err: err}
	case status == 429:
		return &ClassifiedError{Category: CategoryRateLimit, Retryable: true, Err: err}
	case status >= 500:
		return &ClassifiedError{Category: CategoryServiceUnavailable, Retryable: true, Err: err}
	default:
		return &ClassifiedError{Category: CategoryTechnical, Retryable: false, Err: err}
	}
}

// classifyMessage falls back to pattern matching on the error text for
// providers and SDKs that surface codes only as strings.
func classifyMessage(err error) *ClassifiedError {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "rate_limit"), strings.Contains(msg, "too many requests"):
		return &ClassifiedError{Category: CategoryRateLimit, Retryable: true, Err: err}
	case strings.Contains(msg, "etimedout"), strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"), strings.Contains(msg, "deadline exceeded"):
		return &ClassifiedError{Category: CategoryTimeout, Retryable: true, Err: err}
	case strings.Contains(msg, "econnreset"), strings.Contains(msg, "econnrefused"),
		strings.Contains(msg, "connection reset"), strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "500"), strings.Contains(msg, "502"), strings.Contains(msg, "503"),
		strings.Contains(msg, "504"), strings.Contains(msg, "529"), strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "unavailable"):
		return &ClassifiedError{Category: CategoryServiceUnavailable, Retryable: true, Err: err}
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"),
		strings.Contains(msg, "unauthorized"), strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "invalid api key"), strings.Contains(msg, "permission"):
		return &ClassifiedError{Category: CategoryAuthentication, Retryable: false, Err: err}
	case strings.Contains(msg, "400"), strings.Contains(msg, "invalid request"),
		strings.Contains(msg, "invalid parameter"), strings.Contains(msg, "malformed"):
		return &ClassifiedError{Category: CategoryUserInput, Retryable: false, Err: err}
	case strings.Contains(msg, "missing required"), strings.Contains(msg, "required field"):
		return &ClassifiedError{Category: CategoryBusinessLogic, Retryable: false, Err: err}
	default:
		return &ClassifiedError{Category: CategoryTechnical, Retryable: false, Err: err}
	}
}

// ShouldRetry reports whether the error, after classification, is worth
// retrying.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Retryable
}
