package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a failed remote call.
type Kind string

const (
	KindAuth         Kind = "auth"
	KindInvalidInput Kind = "invalid_input"
	KindQuota        Kind = "quota"
	KindTransient    Kind = "transient"
	KindMalformed    Kind = "malformed"
	KindUnknown      Kind = "unknown"
)

// AdapterError wraps provider errors with status metadata.
type AdapterError struct {
	Provider  string
	Kind      Kind
	Status    int
	Temporary bool
	Err       error
}

// Error is the short name used outside this package.
type Error = AdapterError

func (e *AdapterError) Error() string {
	if e == nil {
		return "adapter error"
	}
	prefix := e.Provider
	if prefix == "" {
		prefix = "adapter"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s error: %v", prefix, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s error (status=%d)", prefix, e.Kind, e.Status)
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a classified error from an HTTP status.
func NewError(provider string, status int, err error) *AdapterError {
	return &AdapterError{
		Provider:  provider,
		Kind:      KindForStatus(status),
		Status:    status,
		Temporary: status == http.StatusTooManyRequests || status >= 500,
		Err:       err,
	}
}

// Malformed reports a response that arrived but carried no usable text.
func Malformed(provider string, format string, args ...any) *AdapterError {
	return &AdapterError{
		Provider: provider,
		Kind:     KindMalformed,
		Err:      fmt.Errorf(format, args...),
	}
}

// KindForStatus maps an HTTP status code to a Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		return KindQuota
	case status >= 500 && status <= 599:
		return KindTransient
	case status >= 400 && status <= 499:
		return KindInvalidInput
	default:
		return KindUnknown
	}
}

// Classify wraps err as an AdapterError, using status when the SDK exposed
// one and falling back to network and context inspection.
func Classify(provider string, status int, err error) error {
	if err == nil {
		return nil
	}
	var existing *AdapterError
	if errors.As(err, &existing) {
		return err
	}
	if status > 0 {
		return NewError(provider, status, err)
	}

	kind := KindUnknown
	temporary := false
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		kind = KindUnknown
	case errors.Is(err, context.DeadlineExceeded):
		kind, temporary = KindTransient, true
	case errors.As(err, &netErr):
		kind, temporary = KindTransient, true
	}
	return &AdapterError{Provider: provider, Kind: kind, Temporary: temporary, Err: err}
}

// KindOf returns the Kind of err, or KindUnknown when err is unclassified.
func KindOf(err error) Kind {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) && adapterErr.Kind != "" {
		return adapterErr.Kind
	}
	return KindUnknown
}

// IsTransient reports whether an error is safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		if adapterErr.Temporary || adapterErr.Kind == KindTransient {
			return true
		}
		if adapterErr.Status == 429 || (adapterErr.Status >= 500 && adapterErr.Status <= 599) {
			return true
		}
	}
	return false
}
