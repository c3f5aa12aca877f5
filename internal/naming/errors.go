package naming

import (
	"errors"
	"fmt"
)

var (
	// ErrNamingConvention marks blocks whose filenames do not follow a single
	// uniform separator layout. The block cannot be processed until the
	// supplier's convention is handled explicitly.
	ErrNamingConvention = errors.New("unsupported naming convention")
	// ErrEliminationExhausted is returned when the elimination bound is reached
	// without an accepted scheme.
	ErrEliminationExhausted = errors.New("no flight strip identifier found within elimination bound")
	// ErrCacheStore is returned alongside a valid Result when persisting the
	// scheme failed.
	ErrCacheStore = errors.New("naming cache store failed")
)

// ConventionKind names the rule a block violated.
type ConventionKind string

const (
	KindEmptyBlock         ConventionKind = "empty_block"
	KindSeparator          ConventionKind = "separator"
	KindNoSeparator        ConventionKind = "no_separator"
	KindInconsistentLength ConventionKind = "inconsistent_length"
	KindNonContiguous      ConventionKind = "non_contiguous"
)

// ConventionError describes why a block's filenames were rejected.
type ConventionError struct {
	Kind   ConventionKind
	Name   string
	Detail string
}

func (e *ConventionError) Error() string {
	msg := fmt.Sprintf("%s (%s)", ErrNamingConvention.Error(), e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Name != "" {
		msg += fmt.Sprintf(" [name %q]", e.Name)
	}
	return msg
}

func (e *ConventionError) Unwrap() error { return ErrNamingConvention }
