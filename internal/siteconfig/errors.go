package siteconfig

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig matches every configuration error produced by Build and
// ValidateSidebarUniqueness via errors.Is.
var ErrInvalidConfig = errors.New("invalid site configuration")

// ConfigError is implemented by all configuration error kinds.
type ConfigError interface {
	error
	// Kind is a stable machine-readable identifier of the error kind.
	Kind() string
	// Location names the offending field or path.
	Location() string
}

// MissingFieldError reports a required field that is absent or empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

func (e *MissingFieldError) Kind() string         { return "missing_field" }
func (e *MissingFieldError) Location() string     { return e.Field }
func (e *MissingFieldError) Is(target error) bool { return target == ErrInvalidConfig }

// SchemaMismatchError reports a nested value whose shape does not match the schema.
type SchemaMismatchError struct {
	Path          string
	ExpectedShape string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s", e.Path, e.ExpectedShape)
}

func (e *SchemaMismatchError) Kind() string         { return "schema_mismatch" }
func (e *SchemaMismatchError) Location() string     { return e.Path }
func (e *SchemaMismatchError) Is(target error) bool { return target == ErrInvalidConfig }

// DuplicateLinkError reports two sidebar items resolving to the same path.
// Groups lists the headings of the groups containing the colliding items, in
// tree order.
type DuplicateLinkError struct {
	Link   string
	Groups []string
}

func (e *DuplicateLinkError) Error() string {
	return fmt.Sprintf("sidebar link %q declared more than once (groups: %s)", e.Link, strings.Join(e.Groups, ", "))
}

func (e *DuplicateLinkError) Kind() string         { return "duplicate_link" }
func (e *DuplicateLinkError) Location() string     { return e.Link }
func (e *DuplicateLinkError) Is(target error) bool { return target == ErrInvalidConfig }

// InvalidURLError reports a value that must be an absolute URL but is not.
type InvalidURLError struct {
	Field string
	Value string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("%s: %q is not a valid absolute URL", e.Field, e.Value)
}

func (e *InvalidURLError) Kind() string         { return "invalid_url" }
func (e *InvalidURLError) Location() string     { return e.Field }
func (e *InvalidURLError) Is(target error) bool { return target == ErrInvalidConfig }

// Findings flattens err, which may be a join of several configuration
// errors, into its individual ConfigError values in order.
func Findings(err error) []ConfigError {
	if err == nil {
		return nil
	}
	var out []ConfigError
	var walk func(error)
	walk = func(e error) {
		if ce, ok := e.(ConfigError); ok {
			out = append(out, ce)
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		if inner := errors.Unwrap(e); inner != nil {
			walk(inner)
		}
	}
	walk(err)
	return out
}
