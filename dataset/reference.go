package dataset

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/clarion/rfid-validate/rfid"
)

// referenceColumns are the columns the reference extract must carry. Note the
// tag column is spelled "TagID" here but "TagId" in the signals export; both
// tables came out of different stages of the pipeline and kept their own
// spelling.
var referenceColumns = []string{"TagID", "CSN", "UMid", "Time", "Room1"}

// LoadReference reads the smoothed ground-truth location table. Column order
// does not matter; columns are located by name.
func LoadReference(path string, logger *zap.Logger) ([]*rfid.ReferenceRecord, rfid.ReadStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	stats := rfid.ReadStats{FileName: path}

	t, err := openTable(path)
	if err != nil {
		return nil, stats, err
	}
	defer t.Close()

	hdr, err := t.header()
	if err != nil {
		return nil, stats, err
	}

	idx := make(map[string]int, len(hdr))
	for i, name := range hdr {
		idx[name] = i
	}
	for _, want := range referenceColumns {
		if _, ok := idx[want]; !ok {
			return nil, stats, &SchemaError{Table: path, Column: want, Err: ErrMissingColumn}
		}
	}

	var recs []*rfid.ReferenceRecord
	for {
		fields, err := t.rdr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, stats, fmt.Errorf("table %s: %w", path, err)
		}

		stats.TotalRows++
		row := stats.TotalRows

		rec := new(rfid.ReferenceRecord)

		if rec.TagID, err = parseID(cell(fields, idx, "TagID")); err != nil {
			return nil, stats, &ParseError{Table: path, Column: "TagID", Row: row,
				Value: cell(fields, idx, "TagID"), Err: err}
		}
		if rec.CSN, err = parseID(cell(fields, idx, "CSN")); err != nil {
			return nil, stats, &ParseError{Table: path, Column: "CSN", Row: row,
				Value: cell(fields, idx, "CSN"), Err: err}
		}
		if rec.UMid, err = parseID(cell(fields, idx, "UMid")); err != nil {
			return nil, stats, &ParseError{Table: path, Column: "UMid", Row: row,
				Value: cell(fields, idx, "UMid"), Err: err}
		}

		ts, err := parseTime(cell(fields, idx, "Time"))
		if err != nil || ts.IsZero() {
			if err == nil {
				err = ErrBadTimestamp
			}
			return nil, stats, &ParseError{Table: path, Column: "Time", Row: row,
				Value: cell(fields, idx, "Time"), Err: err}
		}
		rec.Time = ts

		rec.Room1 = strings.TrimSpace(fields[idx["Room1"]])

		recs = append(recs, rec)
	}
	stats.KeptRows = len(recs)

	logger.Info("loaded reference locations",
		zap.String("file", path),
		zap.Int("rows", stats.KeptRows),
	)

	return recs, stats, nil
}

func cell(fields []string, idx map[string]int, name string) string {
	return strings.TrimSpace(fields[idx[name]])
}
