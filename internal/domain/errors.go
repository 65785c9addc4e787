package domain

import (
	"errors"
	"fmt"
)

// Kind classifies fatal pipeline errors.
type Kind string

const (
	// KindSourceUnavailable covers network failures and non-200 responses.
	KindSourceUnavailable Kind = "source unavailable"
	// KindParseFailure covers unexpected schemas, sheet names, and date formats.
	KindParseFailure Kind = "parse failure"
)

// Sentinels for errors.Is checks. Any *Error with the same Kind matches.
var (
	ErrSourceUnavailable = &Error{Kind: KindSourceUnavailable}
	ErrParseFailure      = &Error{Kind: KindParseFailure}
)

// Error is a classified failure attributed to a named source.
type Error struct {
	Kind   Kind
	Source string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Source == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	case e.Source == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// SourceUnavailable wraps err as a KindSourceUnavailable error for source.
func SourceUnavailable(source string, err error) error {
	return &Error{Kind: KindSourceUnavailable, Source: source, Err: err}
}

// ParseFailure wraps err as a KindParseFailure error for source.
func ParseFailure(source string, err error) error {
	return &Error{Kind: KindParseFailure, Source: source, Err: err}
}
