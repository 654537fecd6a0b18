package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	// KindTransient is a transport-level failure (connection refused, DNS,
	// timeout). The ingestion poll loop retries these; everyone else surfaces
	// them once.
	KindTransient ErrorKind = iota
	// KindAuthExpired is a 401 that survived a refresh attempt. Callers must
	// treat the session as over and force a new login.
	KindAuthExpired
	// KindValidation is any other 4xx. The detail message is meant for the
	// user and is not fatal.
	KindValidation
	// KindServer is a 5xx.
	KindServer
)

// APIError is the one error type the gateway surfaces. Every HTTP and
// transport failure is normalized into it so callers can branch on Kind
// instead of inspecting responses.
type APIError struct {
	Kind   ErrorKind
	Status int
	Detail string
	cause  error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api error: %s", e.Detail)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

func newHTTPError(status int, detail string) *APIError {
	if detail == "" {
		detail = http.StatusText(status)
	}
	kind := KindValidation
	switch {
	case status == http.StatusUnauthorized:
		kind = KindAuthExpired
	case status >= 500:
		kind = KindServer
	}
	return &APIError{Kind: kind, Status: status, Detail: detail}
}

func newTransportError(err error) *APIError {
	return &APIError{Kind: KindTransient, Detail: err.Error(), cause: err}
}

func IsAuthExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuthExpired
}

func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindTransient
}
