package hotjobs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompleteListing is returned when a removal names no company or no
// title. Removals always target one specific pair.
var ErrIncompleteListing = errors.New("both company and title are required")

// ConfigurationError reports a category name that is not configured.
type ConfigurationError struct {
	Category  string
	Available []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown category %q", e.Category)
	}
	return fmt.Sprintf("unknown category %q (available: %s)", e.Category, strings.Join(e.Available, ", "))
}

// FetchError wraps a transport or parse failure from a job board. The
// category it belongs to keeps its previous shortlist.
type FetchError struct {
	Category string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %q: %v", e.Category, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistenceError wraps a failure to load or save the store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s state: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
