// Package apperr holds the failure taxonomy shared by every module and the single
// policy that turns a failure into the external error contract.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for translation.
type Kind int

const (
	// KindUnclassified is anything not raised deliberately (storage, network, bugs).
	KindUnclassified Kind = iota
	// KindValidation is a structural input failure detected before business logic runs.
	KindValidation
	// KindBusinessRule is an operation rejected because of the current state of the data.
	KindBusinessRule
	// KindNotFound means a referenced identity does not exist.
	KindNotFound
	// KindConflict means a concurrent writer changed the record between read and conditional write.
	// The caller may retry; nothing retries automatically.
	KindConflict
	// KindMethodNotAllowed means the path exists but not for the request method.
	KindMethodNotAllowed
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBusinessRule:
		return "business_rule"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "unclassified"
	}
}

// HTTPStatus is the status code a kind translates to.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindBusinessRule:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a structural validation failure from a field->message map.
func Validation(fields map[string]string) *Error {
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &Error{Kind: KindValidation, Message: ValidationMessage, Fields: copied}
}

// BusinessRule builds a state-dependent rejection.
func BusinessRule(format string, args ...any) *Error {
	return &Error{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a missing-identity failure naming the resource kind and identifier.
func NotFound(resource string, id any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found with id: %v", resource, id)}
}

// Conflict builds a retryable concurrent-modification failure.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// RouteNotFound reports a request no route matches.
func RouteNotFound(method, path string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("No handler found for %s %s", method, path)}
}

// MethodNotAllowed reports a routed path requested with an unsupported method.
func MethodNotAllowed(method string) *Error {
	return &Error{Kind: KindMethodNotAllowed, Message: fmt.Sprintf("Request method '%s' is not supported", method)}
}

// KindOf reports the kind of err, looking through wrapping. Plain errors are unclassified.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Kind
	}
	return KindUnclassified
}
