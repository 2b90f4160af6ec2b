package core

// validation.go checks an import request before any row is read.
//
// Request problems are collected rather than returned one at a time so that a
// caller sees every missing field at once. Row-level problems are not
// validation errors: they are reported per row in ImportResult.FailedRows.

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/royalty/internal/catalog"
	"github.com/JonMunkholm/royalty/internal/reconcile"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field/column name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors is every problem found in one request.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the sentinel errors some checks correspond to.
func (v ValidationErrors) Unwrap() []error {
	var out []error
	for _, e := range v {
		switch e.Field {
		case "tenant":
			out = append(out, reconcile.ErrMissingTenant)
		case "kind":
			out = append(out, reconcile.ErrUnsupportedKind)
		}
	}
	return out
}

// ValidateRequest returns nil or a ValidationErrors listing every problem.
func ValidateRequest(req ImportRequest) error {
	var errs ValidationErrors

	l, ok := LayoutFor(req.Kind)
	if !ok || !l.Importable {
		errs = append(errs, ValidationError{
			Field:   "kind",
			Value:   string(req.Kind),
			Message: "kind cannot be imported",
		})
	}
	if strings.TrimSpace(req.Tenant) == "" {
		errs = append(errs, ValidationError{
			Field:   "tenant",
			Message: reconcile.ErrMissingTenant.Error(),
		})
	}
	if len(req.Data) == 0 {
		errs = append(errs, ValidationError{
			Field:   "file",
			Value:   req.FileName,
			Message: "empty file",
		})
	}
	if len(req.Terms) > 0 && req.Kind != catalog.KindContract {
		errs = append(errs, ValidationError{
			Field:   "terms",
			Message: "term sheets are only accepted with a contract import",
		})
	}
	for l := range req.Terms {
		if _, err := catalog.ParseTermList(string(l)); err != nil {
			errs = append(errs, ValidationError{
				Field:   "terms",
				Value:   string(l),
				Message: err.Error(),
			})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
