package services

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable wraps navigation, timeout, selector and upload failures
	ErrSourceUnavailable = errors.New("listing source unavailable")
	// ErrNoListings means the scrape worked but nothing usable came back
	ErrNoListings = errors.New("no listings found")
	// ErrGroupNotFound is returned by analysis for an unknown group id
	ErrGroupNotFound = errors.New("variation group not found")
	// ErrSearchExpired means an image search is no longer cached and cannot be replayed
	ErrSearchExpired = errors.New("search expired")
	// ErrUnsupported is returned by sources that lack a search mode
	ErrUnsupported = errors.New("operation not supported by source")
	// ErrInvalidQuery rejects empty or oversized queries
	ErrInvalidQuery = errors.New("invalid query")
)

// SourceFailureKind classifies why a listing source produced nothing
type SourceFailureKind string

const (
	FailureNavigation  SourceFailureKind = "navigation"
	FailureTimeout     SourceFailureKind = "timeout"
	FailureSelector    SourceFailureKind = "selector"
	FailureUpload      SourceFailureKind = "upload"
	FailureEmpty       SourceFailureKind = "empty"
	FailureUnsupported SourceFailureKind = "unsupported"
)

// SourceError describes a failed source operation
type SourceError struct {
	Source string
	Op     string
	Kind   SourceFailureKind
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Source, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Source, e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the category sentinel and the underlying cause
func (e *SourceError) Unwrap() []error {
	var category error
	switch e.Kind {
	case FailureEmpty:
		category = ErrNoListings
	case FailureUnsupported:
		category = ErrUnsupported
	default:
		category = ErrSourceUnavailable
	}
	if e.Err == nil {
		return []error{category}
	}
	return []error{category, e.Err}
}

func newSourceError(source, op string, kind SourceFailureKind, err error) *SourceError {
	return &SourceError{Source: source, Op: op, Kind: kind, Err: err}
}

// failureKind extracts the kind from err, defaulting to navigation
func failureKind(err error) SourceFailureKind {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, ErrUnsupported) {
		return FailureUnsupported
	}
	return FailureNavigation
}
