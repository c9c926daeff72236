package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// RevokedTokenCode is the error envelope code Venmo returns for a revoked
// access or refresh token.
const RevokedTokenCode = 262

// Fault kinds. Use errors.Is to test which one an error belongs to.
var (
	// ErrNotAuthenticated means there is no usable session; log in again.
	ErrNotAuthenticated = errors.New("not logged in")
	// ErrAlreadyAuthenticated is returned by Login and Restore when a session
	// is already active. Nothing was changed.
	ErrAlreadyAuthenticated = errors.New("already logged in")
	// ErrTransportFailure covers connectivity problems and empty responses.
	ErrTransportFailure = errors.New("connectivity problem")
	// ErrAPIFault is a well-formed rejection from the server.
	ErrAPIFault = errors.New("api fault")
	// ErrAuthRevoked is a rejection carrying RevokedTokenCode. Errors matching
	// it returned by Client also match ErrNotAuthenticated.
	ErrAuthRevoked = errors.New("token revoked")
)

// APIError represents an error envelope {"error": {"code", "message"}}.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       int    `json:"code,omitempty"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("API error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// Revoked reports whether the server rejected the token as revoked.
func (e *APIError) Revoked() bool {
	return e.Code == RevokedTokenCode
}

// Is matches ErrAuthRevoked for revoked-token envelopes and ErrAPIFault for
// every other envelope.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthRevoked:
		return e.Revoked()
	case ErrAPIFault:
		return !e.Revoked()
	}
	return false
}

// IsRetryable is always false; the request must change before it can succeed.
func (e *APIError) IsRetryable() bool {
	return false
}

// ExitCode maps the error to a CLI exit code.
func (e *APIError) ExitCode() int {
	if e.Revoked() {
		return 3 // auth error
	}
	return 2 // API error
}

// TransportError indicates the request never produced a usable response:
// a network failure, a cancelled context, an empty body, or a server error
// page that is not an error envelope.
type TransportError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connectivity problem: %v", e.Err)
	}
	return fmt.Sprintf("connectivity problem: empty response (%s)", e.Status)
}

func (e *TransportError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrTransportFailure, e.Err}
	}
	return []error{ErrTransportFailure}
}

// IsRetryable is always true; the caller decides whether to try again.
func (e *TransportError) IsRetryable() bool {
	return true
}

// errorInfo is the payload of an error envelope. Code is a json.Number since
// some endpoints quote it.
type errorInfo struct {
	Code    json.Number `json:"code"`
	Message string      `json:"message"`
}

// Classify inspects a response and returns the fault it represents, or nil.
// A 2xx response with a body is never an error, whatever the body contains.
// A 5xx body that is not an error envelope is a TransportError.
func Classify(resp *Response) error {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return &TransportError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if resp.OK() {
		return nil
	}

	var parsed struct {
		Error *errorInfo `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err != nil || parsed.Error == nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			// A proxy or gateway page says nothing about the request itself.
			return &TransportError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Err:        fmt.Errorf("server error %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: parsed.Error.Message}
	if code, err := parsed.Error.Code.Int64(); err == nil {
		apiErr.Code = int(code)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
