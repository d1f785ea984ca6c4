// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
)

// ErrorStatus describes errors that correspond to specific HTTP status
// codes.
type ErrorStatus interface {
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrUnsupportedMediaType is returned from Decode() if the provided
// Content-Type: is unrecognized.  This translates directly into the
// equivalent HTTP 415 error.
type ErrUnsupportedMediaType struct {
	Type string
}

func (e ErrUnsupportedMediaType) Error() string {
	return fmt.Sprintf("unsupported media type %q", e.Type)
}

// HTTPStatus returns a fixed 415 Unsupported Media Type error code.
func (e ErrUnsupportedMediaType) HTTPStatus() int {
	return http.StatusUnsupportedMediaType
}

// ErrNotFound is a wrapper error that indicates that, due to the
// embedded error, a REST service should return a 404 Not Found error.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 404 Not Found error code.
func (e ErrNotFound) HTTPStatus() int {
	return http.StatusNotFound
}

// ErrBadRequest is returned as an error when there is an error decoding
// HTTP headers or the request body.
type ErrBadRequest struct {
	Err error
}

func (e ErrBadRequest) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 400 Bad Request HTTP status code.
func (e ErrBadRequest) HTTPStatus() int {
	return http.StatusBadRequest
}

// ErrConflict wraps coordination conflicts: a busy worker asking for
// more work, or a report against a unit someone else owns.
type ErrConflict struct {
	Err error
}

func (e ErrConflict) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 409 Conflict HTTP status code.
func (e ErrConflict) HTTPStatus() int {
	return http.StatusConflict
}

// ErrUnavailable wraps storage backend failures that did not resolve
// within the server's retry budget.
type ErrUnavailable struct {
	Err error
}

func (e ErrUnavailable) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 503 Service Unavailable HTTP status code.
func (e ErrUnavailable) HTTPStatus() int {
	return http.StatusServiceUnavailable
}

// ErrorResponse is the wire representation of an error.
type ErrorResponse struct {
	// Error holds a well-known error token, or "error" for
	// anything else.
	Error string `json:"error"`

	// Message holds a human-readable error message.
	Message string `json:"message"`

	// Value holds an error-specific parameter, such as the work
	// id of a missing work unit.
	Value string `json:"value,omitempty"`

	// Stack holds a stack trace when the error came from a
	// server-side panic.
	Stack string `json:"stack,omitempty"`
}

// FromError fills in an ErrorResponse based on an error value,
// remapping the well-known coordinate and aqea errors to specific
// tokens.
func (e *ErrorResponse) FromError(err error) {
	e.Message = err.Error()
	switch err {
	case coordinate.ErrWrongWorker:
		e.Error = "ErrWrongWorker"
	case coordinate.ErrUnitNotActive:
		e.Error = "ErrUnitNotActive"
	case coordinate.ErrProgressRegression:
		e.Error = "ErrProgressRegression"
	case aqea.ErrEmptyLemma:
		e.Error = "ErrEmptyLemma"
	case aqea.ErrControlCharacters:
		e.Error = "ErrControlCharacters"
	}
	switch et := err.(type) {
	case coordinate.ErrNoSuchWorkUnit:
		e.Error = "ErrNoSuchWorkUnit"
		e.Value = et.WorkID
	case coordinate.ErrNoSuchWorker:
		e.Error = "ErrNoSuchWorker"
		e.Value = et.WorkerID
	case coordinate.ErrWorkerBusy:
		e.Error = "ErrWorkerBusy"
		e.Value = et.WorkID
	case aqea.ErrUnsupportedLanguage:
		e.Error = "ErrUnsupportedLanguage"
		e.Value = et.Code
	case ErrNotFound:
		e.FromError(et.Err)
	case ErrBadRequest:
		e.FromError(et.Err)
	case ErrConflict:
		e.FromError(et.Err)
	case ErrUnavailable:
		e.FromError(et.Err)
	}
	if e.Error == "" {
		e.Error = "error"
	}
}

// ToError converts e back to a coordinate or aqea error, if that is
// possible.  If not, returns a plain error with e.Message text.
func (e *ErrorResponse) ToError() error {
	switch e.Error {
	case "ErrWrongWorker":
		return coordinate.ErrWrongWorker
	case "ErrUnitNotActive":
		return coordinate.ErrUnitNotActive
	case "ErrProgressRegression":
		return coordinate.ErrProgressRegression
	case "ErrEmptyLemma":
		return aqea.ErrEmptyLemma
	case "ErrControlCharacters":
		return aqea.ErrControlCharacters
	case "ErrNoSuchWorkUnit":
		return coordinate.ErrNoSuchWorkUnit{WorkID: e.Value}
	case "ErrNoSuchWorker":
		return coordinate.ErrNoSuchWorker{WorkerID: e.Value}
	case "ErrWorkerBusy":
		return coordinate.ErrWorkerBusy{WorkID: e.Value}
	case "ErrUnsupportedLanguage":
		return aqea.ErrUnsupportedLanguage{Code: e.Value}
	}
	return errors.New(e.Message)
}

// FromPanic fills in an ErrorResponse from a recovered panic value,
// capturing a stack trace.
func (e *ErrorResponse) FromPanic(recovered interface{}) {
	e.Error = "panic"
	if err, isError := recovered.(error); isError {
		e.Message = err.Error()
	} else {
		e.Message = fmt.Sprintf("%v", recovered)
	}
	stack := make([]byte, 65536)
	n := runtime.Stack(stack, false)
	e.Stack = string(stack[:n])
}
