package chef

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	ErrCapacity       = errors.New("provider at capacity")
	ErrAuth           = errors.New("provider authentication failed")
	ErrSafety         = errors.New("blocked by safety settings")
	ErrNetwork        = errors.New("provider unreachable")
	ErrMalformed      = errors.New("malformed provider response")
	ErrPolicy         = errors.New("blocked by content policy")
	ErrNotFound       = errors.New("provider resource not found")
	ErrLinkUnreadable = errors.New("link unreadable")
	ErrNoVideo        = errors.New("no video generated")
	ErrUnknown        = errors.New("provider error")
)

// Error is a provider failure with a message that is safe to show users.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Cause }

// ProviderError is a non-2xx response from the provider API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Operation names used in fallback messages.
const (
	OpImage   = "image"
	OpRequest = "request"
	OpVideo   = "video generation"
)

// MapError classifies err into one of the Err* kinds with a user-facing message.
func MapError(err error, op string) error {
	if err == nil {
		return nil
	}

	var mapped *Error
	if errors.As(err, &mapped) {
		return mapped
	}

	msg := strings.ToLower(err.Error())
	var syntaxErr *json.SyntaxError
	var netErr net.Error

	switch {
	case contains(msg, "429", "quota", "resource_exhausted"):
		return &Error{ErrCapacity, "Our kitchen is at capacity right now. Please wait a moment before trying again.", err}
	case contains(msg, "401", "403", "api key"):
		return &Error{ErrAuth, "Authentication with the recipe service failed. Check the API key configuration.", err}
	case contains(msg, "safety", "blocked"):
		return &Error{ErrSafety, "The request could not be processed due to content safety guidelines.", err}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr), contains(msg, "fetch", "network", "connection refused"):
		return &Error{ErrNetwork, "Connection to the recipe service was interrupted. Please check the network and try again.", err}
	case errors.As(err, &syntaxErr), contains(msg, "json"):
		return &Error{ErrMalformed, "The recipe could not be structured correctly. Please try a different query.", err}
	case contains(msg, "candidate"):
		return &Error{ErrPolicy, "The content could not be generated due to policy restrictions.", err}
	case contains(msg, "entity was not found", "not_found"):
		return &Error{ErrNotFound, "The requested resource was not found. If this concerns the API key, select it again.", err}
	}

	what := "processing your request"
	switch op {
	case OpImage:
		what = "analyzing the image"
	case OpVideo:
		what = "generating the video"
	}
	return &Error{ErrUnknown, fmt.Sprintf("An error occurred while %s. Please try again.", what), err}
}

func contains(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
