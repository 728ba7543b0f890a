/*
errors.go - Error types for table loading

PURPOSE:
  Structural problems in an input table (missing file, absent column, a cell
  that will not parse) abort the run immediately, and the error has to say
  which table and which column broke. These types carry that context.

ERROR CATEGORIES:
  1. Schema errors - the header does not match what the layout requires
  2. Parse errors  - a specific cell failed to parse (names table, column, row)

USAGE:
  if errors.Is(err, dataset.ErrMissingColumn) { ... }

  var perr *dataset.ParseError
  if errors.As(err, &perr) {
      fmt.Println(perr.Table, perr.Column, perr.Row)
  }
*/
package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when a table's header lacks a column the
	// layout requires.
	ErrMissingColumn = errors.New("missing expected column")

	// ErrBadHeader is returned when a table's header cannot satisfy the
	// expected layout at all (too short, wrong prefix, no room columns).
	ErrBadHeader = errors.New("malformed header")

	// ErrBadTimestamp is returned when a timestamp cell matches none of the
	// accepted layouts.
	ErrBadTimestamp = errors.New("unparseable timestamp")
)

// SchemaError reports a header that does not match the expected layout.
type SchemaError struct {
	Table  string
	Column string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("table %s: column %q: %v", e.Table, e.Column, e.Err)
	}
	return fmt.Sprintf("table %s: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ParseError reports a cell that failed to parse. Row is 1-based over data
// rows (the header is row 0).
type ParseError struct {
	Table  string
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("table %s: column %q, row %d: cannot parse %q: %v",
		e.Table, e.Column, e.Row, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
