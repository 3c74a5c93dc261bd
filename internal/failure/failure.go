// Package failure classifies collaborator errors into the closed set the
// assistant knows how to explain to a shopper.
package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

type Kind string

const (
	KindNetwork    Kind = "network"
	KindValidation Kind = "validation"
	KindBusiness   Kind = "business"
)

const FallbackLogin = "login"

type Error struct {
	Kind     Kind
	Status   int
	Message  string
	Fallback string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	default:
		return string(e.Kind) + " error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same request may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork
}

// FromStatus maps a non-2xx HTTP status to an error of the matching kind.
func FromStatus(status int, message string) *Error {
	e := &Error{Status: status, Message: message}
	switch {
	case status >= 500:
		e.Kind = KindNetwork
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindValidation
		e.Fallback = FallbackLogin
	case status == http.StatusNotFound || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		e.Kind = KindBusiness
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		e.Kind = KindNetwork
	default:
		e.Kind = KindValidation
	}
	return e
}

// Rejected is a 2xx response whose body reported success=false.
func Rejected(message string) *Error {
	return &Error{Kind: KindBusiness, Message: message}
}

func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

// Classify returns err as a *Error. Transport failures (timeouts, refused
// connections, DNS) and anything else unrecognised count as network errors so
// the shopper is offered a retry.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return Network(err)
}

// IsTransport reports whether err came from the transport rather than from a
// response.
func IsTransport(err error) bool {
	var netErr net.Error
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) || errors.As(err, &netErr)
}

func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}
