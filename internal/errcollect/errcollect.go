// Package errcollect aggregates multiple independent failures into one
// report, for passes where it is more useful to tell the caller
// everything that is wrong at once than to stop at the first problem.
package errcollect

import (
	"errors"
	"fmt"
	"strings"
)

// Collector gathers errors added during a validation pass. The zero
// value is ready to use.
type Collector struct {
	Errors []error
}

// Add appends err to the collector, unless it is nil, so callers can
// write c.Add(mightFail()) unconditionally.
func (c *Collector) Add(err error) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

// Addf formats and appends an error, via fmt.Errorf when args are
// given, or errors.New(format) verbatim otherwise.
func (c *Collector) Addf(format string, args ...any) {
	if len(args) > 0 {
		c.Errors = append(c.Errors, fmt.Errorf(format, args...))
	} else {
		c.Errors = append(c.Errors, errors.New(format))
	}
}

// Ok reports whether no errors were added.
func (c *Collector) Ok() bool { return len(c.Errors) == 0 }

// Err returns nil if the collector is empty, c itself (as an error)
// otherwise.
func (c *Collector) Err() error {
	if c.Ok() {
		return nil
	}
	return c
}

// Error joins every collected error's message with "; ".
func (c *Collector) Error() string {
	msgs := make([]string, len(c.Errors))
	for i, err := range c.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the collected errors to errors.Is/errors.As.
func (c *Collector) Unwrap() []error { return c.Errors }
