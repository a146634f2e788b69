// Package service provides business logic for the application.
package service

import (
	"errors"
	"sort"
	"strings"
)

// FieldErrors is a validation failure keyed by input field. It is surfaced
// to the caller as field-keyed messages and never logged as a server error.
type FieldErrors map[string][]string

// Error implements the error interface.
func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, field := range fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(field)
		b.WriteString(": ")
		b.WriteString(strings.Join(e[field], ", "))
	}
	return b.String()
}

// First returns the first message of the first field in sorted field order.
// Used where the caller wants a single flat message out of a validation
// failure.
func (e FieldErrors) First() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if len(e[field]) > 0 {
			return e[field][0]
		}
	}
	return "Validation failed"
}

// Add appends a message for a field.
func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// AsFieldErrors unwraps err into FieldErrors if it is one.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
