// Package diag holds the recoverable error kinds raised while building a scene
// and the collector that gathers them. None of these abort a parse.
package diag

import (
	"fmt"
	"sync"

	"github.com/mogaika/scene_browser/logger"
)

// UnknownTypeError is raised for a type tag no handler is registered for.
type UnknownTypeError struct {
	Table string
	ID    string
	Type  string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("Unsupported %s type %q (uuid %q)", e.Table, e.Type, e.ID)
}

// DanglingReferenceError is raised when an id is missing from the table it refers to.
type DanglingReferenceError struct {
	From  string
	Table string
	ID    string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("Undefined %s %q referenced by %q", e.Table, e.ID, e.From)
}

type MediaError struct {
	ID  string
	URL string
	Err error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("Media %q (%s) failed: %v", e.ID, e.URL, e.Err)
}

func (e *MediaError) Unwrap() error { return e.Err }
func (e *MediaError) Cause() error  { return e.Err }

// ConstantError is raised for a symbolic enumeration name that has no numeric code.
type ConstantError struct {
	ID    string
	Field string
	Value string
}

func (e *ConstantError) Error() string {
	return fmt.Sprintf("Unknown constant %q for %s of %q", e.Value, e.Field, e.ID)
}

// InvalidRecordError is raised for a record that is structurally usable but incomplete.
type InvalidRecordError struct {
	Table  string
	ID     string
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("Invalid %s %q: %s", e.Table, e.ID, e.Reason)
}

type Reporter interface {
	Report(err error)
}

type Discard struct{}

func (Discard) Report(error) {}

// Collector keeps every reported diagnostic. Safe for concurrent use,
// media failures are reported from loader goroutines.
type Collector struct {
	log  *logger.Logger
	mu   sync.Mutex
	errs []error
}

func NewCollector(log *logger.Logger) *Collector {
	return &Collector{log: log}
}

func (c *Collector) Report(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
	c.log.Warn(err.Error(), "kind", fmt.Sprintf("%T", err))
}

func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errs...)
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// Strings is the JSON friendly form of Errors.
func (c *Collector) Strings() []string {
	errs := c.Errors()
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
