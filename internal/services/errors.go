package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/formcheck/internal/shared"
)

// ErrorKind classifies a failed API call.
type ErrorKind int

const (
	KindNetwork    ErrorKind = iota + 1 // no response
	KindAuth                            // 401
	KindValidation                      // other 4xx
	KindServer                          // 5xx
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNetwork:
		return shared.ErrNetwork
	case KindAuth:
		return shared.ErrUnauthorized
	case KindValidation:
		return shared.ErrValidation
	case KindServer:
		return shared.ErrServer
	default:
		return shared.ErrAPIRequest
	}
}

// APIError is returned for every failed call made through [Client].
//
// Message holds the server-supplied message for auth and validation errors
// and a generic localized message otherwise.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error (%d): %s", e.Kind, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap exposes the kind sentinel and the transport cause to [errors.Is].
func (e *APIError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// UserMessage returns the message to show for err.
//
// Auth and validation errors surface the server message verbatim when it has one;
// everything else falls back to fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fallback
	}
	switch apiErr.Kind {
	case KindAuth, KindValidation:
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return fallback
}

func newNetworkError(err error) *APIError {
	return &APIError{Kind: KindNetwork, Message: shared.MsgNetworkError, Err: err}
}

// classify builds the [APIError] for a non-2xx response.
func classify(status int, header http.Header, body []byte) *APIError {
	switch {
	case status == http.StatusUnauthorized:
		return &APIError{Kind: KindAuth, Status: status, Message: serverMessage(header, body)}
	case status >= 500:
		return &APIError{Kind: KindServer, Status: status, Message: shared.MsgServerError}
	default:
		return &APIError{Kind: KindValidation, Status: status, Message: serverMessage(header, body)}
	}
}

// serverMessage extracts a message from a JSON {"message"} or {"error"} body,
// a plain-text body, or the "error" response header, in that order.
func serverMessage(header http.Header, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed != "" {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			if payload.Message != "" {
				return payload.Message
			}
			if payload.Error != "" {
				return payload.Error
			}
		} else if !strings.HasPrefix(trimmed, "<") {
			return trimmed
		}
	}
	return header.Get("error")
}
