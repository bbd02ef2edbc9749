// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code classifies resolver failures. Both protocol adapters map codes to
// their native error representation; GraphQL exposes them via
// extensions.code.
type Code string

const (
	CodeNoData                Code = "NO_DATA_AVAILABLE"
	CodeEndpointDisabled      Code = "ENDPOINT_DISABLED"
	CodeResourceNotFound      Code = "RESOURCE_NOT_FOUND"
	CodeResourceNotCollection Code = "RESOURCE_NOT_COLLECTION"
	CodeItemNotFound          Code = "ITEM_NOT_FOUND"
	CodeMalformedBody         Code = "MALFORMED_REQUEST_BODY"
	CodeValidationFailed      Code = "SCHEMA_VALIDATION_FAILED"
	CodeInternal              Code = "INTERNAL_ERROR"
)

// Error is the typed failure returned for every expected error condition.
// Details carries field-qualified validation messages when present.
type Error struct {
	Code    Code
	Message string
	Details []string
	cause   error
}

func (e *Error) Error() string {
	if len(e.Details) > 0 {
		return e.Message + ": " + strings.Join(e.Details, "; ")
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the error class to a REST status code.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeMalformedBody, CodeValidationFailed, CodeResourceNotCollection:
		return http.StatusBadRequest
	case CodeNoData, CodeEndpointDisabled, CodeResourceNotFound, CodeItemNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// NoData reports that no dataset has passed validation yet.
func NoData() *Error {
	return &Error{
		Code:    CodeNoData,
		Message: "No data available. Upload and validate a dataset first",
	}
}

// Disabled reports an operation switched off by the endpoint configuration.
func Disabled(resource string, op Operation) *Error {
	return &Error{
		Code:    CodeEndpointDisabled,
		Message: fmt.Sprintf("Endpoint %s is not enabled for resource %q", op, resource),
	}
}

// NotFound reports an unknown resource.
func NotFound(resource string) *Error {
	return &Error{
		Code:    CodeResourceNotFound,
		Message: fmt.Sprintf("Resource %q not found", resource),
	}
}

// NotCollection reports a top-level key that is not an array.
func NotCollection(resource string) *Error {
	return &Error{
		Code:    CodeResourceNotCollection,
		Message: fmt.Sprintf("Key %q is not a collection", resource),
	}
}

// ItemNotFound reports a missing item id within an existing resource.
func ItemNotFound(resource, id string) *Error {
	return &Error{
		Code:    CodeItemNotFound,
		Message: fmt.Sprintf("Item %q not found in resource %q", id, resource),
	}
}

// MalformedBody reports an unparseable request body.
func MalformedBody(cause error) *Error {
	return &Error{
		Code:    CodeMalformedBody,
		Message: "Request body is not valid JSON",
		cause:   cause,
	}
}

// ValidationFailed carries the validator's field-qualified messages.
func ValidationFailed(details []string) *Error {
	return &Error{
		Code:    CodeValidationFailed,
		Message: "Validation failed",
		Details: details,
	}
}

// Internal wraps an unexpected error. The cause is retained for logging but
// the message shown to callers stays generic.
func Internal(cause error) *Error {
	return &Error{
		Code:    CodeInternal,
		Message: "An internal error occurred",
		cause:   cause,
	}
}

// AsError converts any error to a typed resolver error, wrapping unknown
// errors as internal.
func AsError(err error) *Error {
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	return Internal(err)
}
