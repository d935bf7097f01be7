package apperr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Error is the structured application error carried through every layer
// above storage. It implements the standard error interface and wraps an
// optional underlying cause.
type Error struct {
	code    Code
	message string
	field   string // set for validation errors, names the offending field
	context map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.code, e.message, e.field)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Code() Code { return e.code }

// WithContext attaches diagnostic key/value pairs surfaced in the error
// envelope's "context" object.
func (e *Error) WithContext(key, value string) *Error {
	if e.context == nil {
		e.context = make(map[string]string)
	}
	e.context[key] = value
	return e
}

func newError(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Constructors mirroring the original AppError helper constructors.

func AuthMissing() *Error {
	return newError(CodeAuthMissing, "missing token")
}

func AuthInvalidFormat() *Error {
	return newError(CodeAuthInvalid, "invalid format")
}

func AuthInvalidToken() *Error {
	return newError(CodeAuthInvalid, "invalid token")
}

func Validation(field, message string) *Error {
	e := newError(CodeValidation, message)
	e.field = field
	return e
}

func RateLimited() *Error {
	return newError(CodeRateLimited, "rate limit exceeded")
}

func PayloadTooLarge() *Error {
	return newError(CodePayloadTooLarge, "payload exceeds configured maximum")
}

func UnsupportedMediaType() *Error {
	return newError(CodeUnsupportedMedia, "Content-Type must be application/json")
}

func DatabaseTransient(cause error) *Error {
	e := newError(CodeDatabaseTransient, "a transient storage error occurred")
	e.cause = cause
	return e
}

func DatabaseFatal(cause error) *Error {
	e := newError(CodeDatabaseFatal, "a storage error occurred")
	e.cause = cause
	return e
}

func Internal(cause error) *Error {
	e := newError(CodeInternal, "an internal error occurred")
	e.cause = cause
	return e
}

// envelope mirrors the wire shape in spec.md §6.
type envelope struct {
	Status string  `json:"status"`
	Error  errBody `json:"error"`
	Retry  *retry  `json:"retry,omitempty"`
}

type errBody struct {
	ID        string            `json:"id"`
	Code      Code              `json:"code"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Context   map[string]string `json:"context,omitempty"`
	Source    string            `json:"source,omitempty"`
}

type retry struct {
	Retryable  bool   `json:"retryable"`
	RetryAfter int64  `json:"retry_after,omitempty"`
	MaxRetries uint32 `json:"max_retries,omitempty"`
}

// WriteJSON renders err as the structured error envelope, logging
// server-side at a severity matching the resulting HTTP status, and
// returns the status code written so callers can use it for access logs.
func WriteJSON(w http.ResponseWriter, logger zerolog.Logger, err error) int {
	ae, ok := err.(*Error)
	if !ok {
		ae = Internal(err)
	}

	errID := uuid.NewString()
	status := ae.code.httpStatus()

	ctx := ae.context
	if ae.field != "" {
		if ctx == nil {
			ctx = make(map[string]string)
		}
		ctx["field"] = ae.field
	}

	body := envelope{
		Status: "error",
		Error: errBody{
			ID:        errID,
			Code:      ae.code,
			Message:   ae.message,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Context:   ctx,
		},
	}
	if ae.cause != nil {
		body.Error.Source = ae.cause.Error()
	}
	if ae.code.retryable() {
		body.Retry = &retry{
			Retryable:  true,
			RetryAfter: ae.code.retryAfterMillis(),
			MaxRetries: 3,
		}
	}

	ev := logger.Info()
	if status >= 500 {
		ev = logger.Error()
	} else if status >= 400 {
		ev = logger.Warn()
	}
	ev = ev.Str("error_id", errID).Str("code", string(ae.code))
	if ae.cause != nil {
		ev = ev.Err(ae.cause)
	}
	ev.Msg(ae.message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
	return status
}
