package modules

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrorKind classifies a failed tool invocation.
type ErrorKind string

const (
	KindMissingCredential ErrorKind = "missing_credential"
	KindInvalidArgument   ErrorKind = "invalid_argument"
	KindNetworkError      ErrorKind = "network_error"
	KindRemoteError       ErrorKind = "remote_error"
	KindAuthError         ErrorKind = "auth_error"
	KindNotFound          ErrorKind = "not_found"
	KindDecodeError       ErrorKind = "decode_error"
	KindInternal          ErrorKind = "internal_error"
)

// ToolError is the error type returned by tool handlers.
// Status is the upstream HTTP status, zero when none was received.
type ToolError struct {
	Kind    ErrorKind
	Message string
	Status  int
	cause   error
}

func (e *ToolError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ToolError) Unwrap() error { return e.cause }

// Fail creates a ToolError without an upstream status.
func Fail(kind ErrorKind, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// FailStatus creates a ToolError that carries an upstream HTTP status.
func FailStatus(kind ErrorKind, status int, message string) *ToolError {
	return &ToolError{Kind: kind, Message: message, Status: status}
}

// Wrap attaches the underlying cause; the message is kept as given.
func (e *ToolError) Wrap(cause error) *ToolError {
	e.cause = cause
	return e
}

// Result is the envelope returned by every tool. "ok" is always set.
type Result map[string]any

// Success returns an envelope with ok=true.
func Success() Result {
	return Result{"ok": true}
}

// Failure converts err into an envelope with ok=false.
func Failure(err error) Result {
	var te *ToolError
	if !errors.As(err, &te) {
		te = &ToolError{Kind: KindInternal, Message: err.Error()}
	}
	r := Result{
		"ok":    false,
		"error": te.Message,
		"kind":  string(te.Kind),
	}
	if te.Status != 0 {
		r["status"] = te.Status
	}
	return r
}

// OK reports the envelope's ok flag.
func (r Result) OK() bool {
	ok, _ := r["ok"].(bool)
	return ok
}

// ErrorMessage returns the error string of a failed envelope.
func (r Result) ErrorMessage() string {
	s, _ := r["error"].(string)
	return s
}

// Hoist copies the listed keys from body into r when present.
func (r Result) Hoist(body map[string]any, keys ...string) Result {
	for _, k := range keys {
		if v, ok := body[k]; ok {
			r[k] = v
		}
	}
	return r
}
