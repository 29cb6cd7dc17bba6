package conneg

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorModel defines a basic error message model, returned when a request
// cannot be dispatched. It is written as an RFC 7807 problem body.
type ErrorModel struct {
	// Type is a URI to get more information about the error type.
	Type string `json:"type,omitempty" yaml:"type,omitempty" cbor:"type,omitempty"`
	// Title provides a short static summary of the problem. It defaults to the
	// HTTP response status code text.
	Title string `json:"title,omitempty" yaml:"title,omitempty" cbor:"title,omitempty"`
	// Status provides the HTTP status code for client convenience.
	Status int `json:"status,omitempty" yaml:"status,omitempty" cbor:"status,omitempty"`
	// Detail is an explanation specific to this error occurrence. Dispatch
	// failures put the full diagnostic here.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty" cbor:"detail,omitempty"`
	// Instance is a URI to get more info about this error occurence.
	Instance string `json:"instance,omitempty" yaml:"instance,omitempty" cbor:"instance,omitempty"`
	// Allow lists the methods the matched resources accept. It is only set
	// for 405 responses and is sent as `Allow` headers, not in the body.
	Allow []string `json:"-" yaml:"-" cbor:"-"`
}

func (e *ErrorModel) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%d %s", e.Status, e.Title)
	}
	return e.Detail
}

func (e *ErrorModel) GetStatus() int {
	return e.Status
}

// ContentType maps a negotiated format to its problem variant.
func (e *ErrorModel) ContentType(ct string) string {
	switch ct {
	case "application/json":
		return "application/problem+json"
	case "application/cbor":
		return "application/problem+cbor"
	case "application/yaml":
		return "application/problem+yaml"
	}
	return ct
}

// ContentTypeFilter allows you to override the content type for responses,
// allowing you to return a different content type like
// `application/problem+json` after using the `application/json` marshaller.
type ContentTypeFilter interface {
	ContentType(string) string
}

// StatusError is an error that has an HTTP status code.
type StatusError interface {
	GetStatus() int
	Error() string
}

// NewError creates a new instance of an error model with the given status
// code and message.
func NewError(status int, msg string) *ErrorModel {
	return &ErrorModel{
		Status: status,
		Title:  http.StatusText(status),
		Detail: msg,
	}
}

// Status returns the HTTP status carried by err, or 500 when err does not
// carry one.
func Status(err error) int {
	var se StatusError
	if errors.As(err, &se) {
		return se.GetStatus()
	}
	return http.StatusInternalServerError
}

// Error400BadRequest returns a 400.
func Error400BadRequest(msg string) *ErrorModel {
	return NewError(http.StatusBadRequest, msg)
}

// Error404NotFound returns a 404.
func Error404NotFound(msg string) *ErrorModel {
	return NewError(http.StatusNotFound, msg)
}

// Error405MethodNotAllowed returns a 405 listing the allowed methods.
func Error405MethodNotAllowed(msg string, allow []string) *ErrorModel {
	e := NewError(http.StatusMethodNotAllowed, msg)
	e.Allow = allow
	return e
}

// Error406NotAcceptable returns a 406.
func Error406NotAcceptable(msg string) *ErrorModel {
	return NewError(http.StatusNotAcceptable, msg)
}

// Error415UnsupportedMediaType returns a 415.
func Error415UnsupportedMediaType(msg string) *ErrorModel {
	return NewError(http.StatusUnsupportedMediaType, msg)
}

// Error500InternalServerError returns a 500.
func Error500InternalServerError(msg string) *ErrorModel {
	return NewError(http.StatusInternalServerError, msg)
}
