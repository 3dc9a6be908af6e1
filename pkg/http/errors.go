package http

import (
	"fmt"
	"net/http"
)

// AppError is an error carrying the HTTP status and the machine-readable code
// rendered to clients.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates an error bound to field with the given status.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

// WithParam adds a key to the params rendered next to the message.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{}, 2)
	}
	e.Params[key] = value
	return e
}

// WithError records the cause. It is logged, never rendered.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

var statusCodes = map[int]string{
	http.StatusBadRequest:          "ERR_BAD_REQUEST",
	http.StatusNotFound:            "ERR_NOT_FOUND",
	http.StatusConflict:            "ERR_CONFLICT",
	http.StatusTooManyRequests:     "ERR_TOO_MANY_REQUESTS",
	http.StatusInternalServerError: "ERR_INTERNAL",
	http.StatusBadGateway:          "ERR_UPSTREAM",
	http.StatusGatewayTimeout:      "ERR_TIMEOUT",
}

func statusError(status int, message string) *AppError {
	return NewAppError(statusCodes[status], "", message, status)
}

func BadRequestError(message string) *AppError { return statusError(http.StatusBadRequest, message) }
func NotFoundError(message string) *AppError   { return statusError(http.StatusNotFound, message) }
func ConflictError(message string) *AppError   { return statusError(http.StatusConflict, message) }
func InternalError(message string) *AppError   { return statusError(http.StatusInternalServerError, message) }

func TooManyRequestsError(message string) *AppError {
	return statusError(http.StatusTooManyRequests, message)
}

// BadGatewayError reports a failed upstream dependency.
func BadGatewayError(message string) *AppError {
	return statusError(http.StatusBadGateway, message)
}

func GatewayTimeoutError(message string) *AppError {
	return statusError(http.StatusGatewayTimeout, message)
}
