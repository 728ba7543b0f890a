package dataset

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// table wraps a CSV reader over a possibly gzip-compressed file.
type table struct {
	path string
	rdr  *csv.Reader

	closers []io.Closer
}

// openTable opens a CSV file for reading, transparently decompressing
// when the path ends in .gz.
func openTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", path, err)
	}

	t := &table{path: path, closers: []io.Closer{f}}

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		g, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open table %s: %w", path, err)
		}
		t.closers = append(t.closers, g)
		src = g
	}

	t.rdr = csv.NewReader(src)
	t.rdr.ReuseRecord = true
	return t, nil
}

func (t *table) Close() error {
	var first error
	for i := len(t.closers) - 1; i >= 0; i-- {
		if err := t.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// header reads and returns the header row.
func (t *table) header() ([]string, error) {
	rec, err := t.rdr.Read()
	if err != nil {
		return nil, &SchemaError{Table: t.path, Err: fmt.Errorf("read header: %w", err)}
	}
	// ReuseRecord is on; the header has to outlive the next Read.
	hdr := make([]string, len(rec))
	copy(hdr, rec)
	return hdr, nil
}

// timeLayouts are the accepted timestamp forms. The first is what the
// signals exporter writes; the rest cover the reference extracts.
var timeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

// parseTime parses a timestamp cell. The zero time is returned for an empty
// cell; callers decide whether that is legal for the column at hand.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, ErrBadTimestamp
}
