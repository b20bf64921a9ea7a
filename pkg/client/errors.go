package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
)

// Error codes carried by *Error.
const (
	CodeTimeout = "timeout"
	CodeNetwork = "network"
	CodeUnknown = "unknown"
)

// Messages used when the server gives no usable one.
const (
	MsgTimeout = "Request timed out. Please check your connection and try again."
	MsgNetwork = "Cannot connect to server. Please check your internet connection."
)

var statusMessages = map[int]string{
	http.StatusBadRequest:          "Invalid request. Please check your input and try again.",
	http.StatusUnauthorized:        "Invalid credentials. Please check your login details.",
	http.StatusForbidden:           "Access denied. You do not have permission to perform this action.",
	http.StatusNotFound:            "The requested resource was not found.",
	http.StatusRequestTimeout:      "Request timed out. Please try again.",
	http.StatusConflict:            "Conflict detected. The resource may have been modified by another user.",
	http.StatusUnprocessableEntity: "Invalid data provided. Please check your input.",
	http.StatusTooManyRequests:     "Too many requests. Please wait a moment before trying again.",
	http.StatusInternalServerError: "Server error. Please try again later.",
	http.StatusBadGateway:          "Service temporarily unavailable. Please try again later.",
	http.StatusServiceUnavailable:  "Service temporarily unavailable. Please try again later.",
	http.StatusGatewayTimeout:      "Service temporarily unavailable. Please try again later.",
}

// Error is the single normalised failure shape returned by the gateway.
type Error struct {
	// Status is the HTTP status, 0 when no response arrived, 408 for a
	// client-side timeout and 500 for anything unclassified.
	Status  int
	Code    string
	Message string
	// Details holds the server's body when it was a JSON object or array.
	Details json.RawMessage

	cause error
}

func (e *Error) Error() string {
	if e.Code == CodeTimeout || e.Code == CodeNetwork || e.Code == CodeUnknown {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// ServerMessage returns the "message" field of the server body, if any.
func (e *Error) ServerMessage() string {
	if len(e.Details) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(e.Details, &body) != nil {
		return ""
	}
	return body.Message
}

// Unwrap exposes the transport error, if any.
func (e *Error) Unwrap() error { return e.cause }

// StatusMessage returns the fixed user-facing message for an HTTP status.
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return fmt.Sprintf("An error occurred (%d). Please try again.", status)
}

// HTTPCode returns the error code used for an HTTP failure status.
func HTTPCode(status int) string {
	return "http-" + strconv.Itoa(status)
}

func httpError(status int, body []byte) *Error {
	e := &Error{
		Status:  status,
		Code:    HTTPCode(status),
		Message: StatusMessage(status),
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') || !json.Valid(trimmed) {
		return e
	}
	e.Details = json.RawMessage(append([]byte(nil), trimmed...))

	var obj map[string]json.RawMessage
	if json.Unmarshal(trimmed, &obj) != nil {
		return e
	}
	var msg string
	if raw, ok := obj["message"]; ok && json.Unmarshal(raw, &msg) == nil && msg != "" {
		e.Message = msg
	}
	return e
}

// transportError classifies a failure that produced no usable response.
func transportError(err error) *Error {
	if errors.Is(err, context.Canceled) {
		return unknownError(err)
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Status: http.StatusRequestTimeout, Code: CodeTimeout, Message: MsgTimeout, cause: err}
	}
	return &Error{Status: 0, Code: CodeNetwork, Message: MsgNetwork, cause: err}
}

func unknownError(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeUnknown, Message: err.Error(), cause: err}
}

// As extracts the gateway error from err.
func As(err error) (*Error, bool) {
	apiErr := errAsAPI(err)
	return apiErr, apiErr != nil
}

// IsCode reports whether err is a gateway error with the given code.
func IsCode(err error, code string) bool {
	apiErr := errAsAPI(err)
	return apiErr != nil && apiErr.Code == code
}

// IsStatus returns true if err (or any wrapped error) is a gateway error with the given status code.
func IsStatus(err error, code int) bool {
	apiErr := errAsAPI(err)
	return apiErr != nil && apiErr.Status == code
}

// UserMessage returns the text to show a user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := As(err); ok {
		return apiErr.Message
	}
	return err.Error()
}

// LoginMessage returns the text shown when signing in fails. The login
// endpoint gets its own wording because a 401 there means bad credentials,
// not an expired session.
func LoginMessage(err error) string {
	apiErr, ok := As(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}
	switch apiErr.Code {
	case CodeTimeout:
		return MsgTimeout
	case CodeNetwork:
		return "Network error. Please check your connection."
	case CodeUnknown:
		return "An unexpected error occurred. Please try again."
	}

	serverMsg := apiErr.ServerMessage()
	switch apiErr.Status {
	case http.StatusUnauthorized:
		if serverMsg != "" {
			return serverMsg
		}
		return "Invalid username or password"
	case http.StatusNotFound:
		return "Service not found. Please contact support."
	case http.StatusInternalServerError:
		return "Server error. Please try again later."
	}
	if serverMsg != "" {
		return serverMsg
	}
	return "Login failed. Please try again."
}
