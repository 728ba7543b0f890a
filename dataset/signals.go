/*
Package dataset loads the two validation inputs: the per-room signal export
and the smoothed reference location table. Both arrive as gzip-compressed CSV.

Loading is strict: a header that does not match the expected layout, or a
cell that will not parse, stops the run with an error naming the table,
column, and row. The only tolerated gaps are blank visit-window bounds in
patient rows, which load as zero times and are counted in the read stats.
*/
package dataset

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/clarion/rfid-validate/rfid"
)

// SignalOptions adjusts how a signals table is read.
type SignalOptions struct {
	// SignalOffset is the index of the first room column. Zero means derive
	// it from the schema prefix. Values past the prefix drop leading room
	// columns from the argmax, reproducing the historical hard-coded slices.
	SignalOffset int

	// Logger receives load statistics. Nil means no logging.
	Logger *zap.Logger
}

// SignalTable is a fully parsed signals export.
type SignalTable struct {
	Schema   rfid.Schema
	Rooms    []string
	Readings []*rfid.SignalReading
	Stats    rfid.ReadStats
}

// LoadSignals reads a signals CSV for one entity kind.
func LoadSignals(path string, schema rfid.Schema, opts SignalOptions) (*SignalTable, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	t, err := openTable(path)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	hdr, err := t.header()
	if err != nil {
		return nil, err
	}

	offset := opts.SignalOffset
	if offset <= 0 {
		offset = schema.SignalOffset()
	}

	if err := checkSignalHeader(path, hdr, schema, offset); err != nil {
		return nil, err
	}

	tbl := &SignalTable{
		Schema: schema,
		Rooms:  append([]string(nil), hdr[offset:]...),
		Stats:  rfid.ReadStats{FileName: path},
	}

	for {
		fields, err := t.rdr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("table %s: %w", path, err)
		}

		tbl.Stats.TotalRows++
		row := tbl.Stats.TotalRows

		r := new(rfid.SignalReading)
		if err := parsePrefix(r, fields, schema, path, row); err != nil {
			return nil, err
		}
		if schema.HasVisitWindow {
			if r.ClarityStart.IsZero() {
				tbl.Stats.MissingWindowStart++
			}
			if r.ClarityEnd.IsZero() {
				tbl.Stats.MissingWindowEnd++
			}
		}

		r.Signals = make([]decimal.Decimal, len(tbl.Rooms))
		for j, cell := range fields[offset:] {
			v, err := decimal.NewFromString(strings.TrimSpace(cell))
			if err != nil {
				return nil, &ParseError{
					Table: path, Column: tbl.Rooms[j], Row: row, Value: cell, Err: err,
				}
			}
			r.Signals[j] = v
		}

		tbl.Readings = append(tbl.Readings, r)
	}
	tbl.Stats.KeptRows = len(tbl.Readings)

	logger.Info("loaded signals",
		zap.String("file", path),
		zap.String("entity", string(schema.Kind)),
		zap.Int("rows", tbl.Stats.KeptRows),
		zap.Int("rooms", len(tbl.Rooms)),
		zap.Int("missing_window_start", tbl.Stats.MissingWindowStart),
		zap.Int("missing_window_end", tbl.Stats.MissingWindowEnd),
	)

	return tbl, nil
}

// checkSignalHeader verifies the identifier prefix and the room block.
func checkSignalHeader(path string, hdr []string, schema rfid.Schema, offset int) error {
	if len(hdr) < len(schema.Prefix)+1 {
		return &SchemaError{Table: path,
			Err: fmt.Errorf("%w: %d columns, need at least %d identifier columns plus one room",
				ErrBadHeader, len(hdr), len(schema.Prefix))}
	}
	for i, want := range schema.Prefix {
		if hdr[i] != want {
			return &SchemaError{Table: path, Column: want,
				Err: fmt.Errorf("%w: found %q at position %d", ErrMissingColumn, hdr[i], i)}
		}
	}
	if offset < len(schema.Prefix) || offset >= len(hdr) {
		return &SchemaError{Table: path,
			Err: fmt.Errorf("%w: signal offset %d leaves no room columns (header has %d columns, prefix %d)",
				ErrBadHeader, offset, len(hdr), len(schema.Prefix))}
	}
	return nil
}

// parsePrefix fills the identifier fields from the row's prefix columns.
func parsePrefix(r *rfid.SignalReading, fields []string, schema rfid.Schema, path string, row int) error {
	for i, name := range schema.Prefix {
		cell := strings.TrimSpace(fields[i])

		switch name {
		case "TagId":
			v, err := parseID(cell)
			if err != nil {
				return &ParseError{Table: path, Column: name, Row: row, Value: cell, Err: err}
			}
			r.TagID = v
		case "CSN":
			v, err := parseID(cell)
			if err != nil {
				return &ParseError{Table: path, Column: name, Row: row, Value: cell, Err: err}
			}
			r.CSN = v
		case "UMid":
			v, err := parseID(cell)
			if err != nil {
				return &ParseError{Table: path, Column: name, Row: row, Value: cell, Err: err}
			}
			r.UMid = v
		case "Time":
			ts, err := parseTime(cell)
			if err != nil || ts.IsZero() {
				if err == nil {
					err = ErrBadTimestamp
				}
				return &ParseError{Table: path, Column: name, Row: row, Value: cell, Err: err}
			}
			r.Time = ts
		case "ClarityStart":
			ts, err := parseTime(cell)
			if err != nil {
				return &ParseError{Table: path, Column: name, Row: row, Value: cell, Err: err}
			}
			r.ClarityStart = ts
		case "ClarityEnd":
			ts, err := parseTime(cell)
			if err != nil {
				return &ParseError{Table: path, Column: name, Row: row, Value: cell, Err: err}
			}
			r.ClarityEnd = ts
		default:
			return &SchemaError{Table: path, Column: name,
				Err: errors.New("schema names a prefix column the loader does not know")}
		}
	}
	return nil
}

// parseID parses a numeric identifier. Blank cells load as zero, matching
// how the exporter writes absent identifiers.
func parseID(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
