package core

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorCodeBadInput         = "BROKERAGE_BAD_INPUT"
	ErrorCodeConfiguration    = "BROKERAGE_CONFIGURATION"
	ErrorCodeNotAuthenticated = "BROKERAGE_NOT_AUTHENTICATED"
	ErrorCodeForbidden        = "BROKERAGE_FORBIDDEN"
	ErrorCodeRequestFailed    = "BROKERAGE_REQUEST_FAILED"
	ErrorCodeUnhandledStatus  = "BROKERAGE_UNHANDLED_STATUS"
	ErrorCodeStateStore       = "BROKERAGE_STATE_STORE_FAILED"
	ErrorCodeExternalFailure  = "BROKERAGE_EXTERNAL_FAILURE"
	ErrorCodeInternal         = "BROKERAGE_INTERNAL_ERROR"
)

// ServiceErrorer is implemented by typed errors that carry their own
// go-errors envelope.
type ServiceErrorer interface {
	ToServiceError() *goerrors.Error
}

// NewConfigurationError reports a session that cannot be constructed or used
// as configured.
func NewConfigurationError(message string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorCodeConfiguration)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func WrapConfigurationError(source error, message string, metadata map[string]any) *goerrors.Error {
	if source == nil {
		return NewConfigurationError(message, metadata)
	}
	err := goerrors.Wrap(source, goerrors.CategoryBadInput, message).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorCodeConfiguration)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// IsConfigurationError reports whether err carries the configuration text code.
func IsConfigurationError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == ErrorCodeConfiguration
}

func serviceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var typed ServiceErrorer
	if asServiceErrorer(err, &typed) {
		return ensureServiceErrorEnvelope(typed.ToServiceError())
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not authenticated"), strings.Contains(msg, "missing access token"):
		return newServiceError(err.Error(), goerrors.CategoryAuth, ErrorCodeNotAuthenticated)
	case strings.Contains(msg, "state store"):
		return newServiceError(err.Error(), goerrors.CategoryOperation, ErrorCodeStateStore)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must"):
		return newServiceError(err.Error(), goerrors.CategoryBadInput, ErrorCodeBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func asServiceErrorer(err error, target *ServiceErrorer) bool {
	for current := err; current != nil; {
		if typed, ok := current.(ServiceErrorer); ok {
			*target = typed
			return true
		}
		unwrapper, ok := current.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		current = unwrapper.Unwrap()
	}
	return false
}

func newServiceError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorCodeBadInput
	case goerrors.CategoryAuth:
		return ErrorCodeNotAuthenticated
	case goerrors.CategoryAuthz:
		return ErrorCodeForbidden
	case goerrors.CategoryExternal:
		return ErrorCodeExternalFailure
	case goerrors.CategoryOperation:
		return ErrorCodeRequestFailed
	default:
		return ErrorCodeInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

// ResponseError is returned for every response outside the success set.
// It keeps the raw response so callers can inspect the provider's message.
type ResponseError struct {
	StatusCode int
	Method     string
	URL        string
	Header     http.Header
	Body       []byte
}

func (e *ResponseError) Error() string {
	if e == nil {
		return "core: <nil> response error"
	}
	text := strings.TrimSpace(string(e.Body))
	if len(text) > 256 {
		text = text[:256] + "..."
	}
	if text == "" {
		return fmt.Sprintf("core: %s %s returned status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("core: %s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, text)
}

// Text returns the response body as a string.
func (e *ResponseError) Text() string {
	if e == nil {
		return ""
	}
	return string(e.Body)
}

// Diagnosed reports whether the status is one the provider documents as a
// request failure.
func (e *ResponseError) Diagnosed() bool {
	if e == nil {
		return false
	}
	return isDiagnosedStatus(e.StatusCode)
}

func (e *ResponseError) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	category := goerrors.CategoryExternal
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		category = goerrors.CategoryBadInput
	case http.StatusUnauthorized:
		category = goerrors.CategoryAuth
	case http.StatusForbidden:
		category = goerrors.CategoryAuthz
	case http.StatusNotFound:
		category = goerrors.CategoryNotFound
	case http.StatusTooManyRequests:
		category = goerrors.CategoryRateLimit
	}
	textCode := ErrorCodeRequestFailed
	if !e.Diagnosed() {
		textCode = ErrorCodeUnhandledStatus
	}
	return goerrors.New(e.Error(), category).
		WithCode(e.StatusCode).
		WithTextCode(textCode).
		WithMetadata(map[string]any{
			"status_code": e.StatusCode,
			"method":      e.Method,
			"url":         e.URL,
		})
}

func isDiagnosedStatus(status int) bool {
	switch status {
	case http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusUnsupportedMediaType,
		http.StatusInternalServerError:
		return true
	default:
		return false
	}
}
