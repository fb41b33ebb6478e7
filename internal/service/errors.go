package service

import (
	"errors"
	"sort"
	"strings"

	"github.com/Simplici0/estimator/internal/repository"
)

// ValidationError carries field-level messages for a rejected request.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg against field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Err returns e when it holds messages and nil otherwise.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalid(field, msg string) error {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// duplicateAs turns a unique violation into a field message, leaving other
// errors untouched.
func duplicateAs(err error, field, msg string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return invalid(field, msg)
	}
	return err
}

// referenceAs turns a foreign key violation into a field message.
func referenceAs(err error, field, msg string) error {
	if errors.Is(err, repository.ErrReference) {
		return invalid(field, msg)
	}
	return err
}
