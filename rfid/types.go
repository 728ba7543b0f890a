/*
Package rfid defines the domain model shared by the validation pipeline.

PURPOSE:
  Holds the record types read from the two input tables and the per-kind
  schema describing how each table is laid out. Nothing in this package
  touches files or computes metrics; it only says what a reading and a
  reference record ARE.

KEY CONCEPTS IN THIS FILE (types.go):
  - SignalReading: one timestamped row of per-room signal strengths for a tag
  - ReferenceRecord: ground-truth room assignment from the tracking table
  - ReadStats: counters describing what a load kept and skipped

DESIGN PRINCIPLES:
  1. Precision: signal strengths are decimal.Decimal, parsed exactly from
     the CSV text, so argmax comparisons never go through float64
  2. Zero times mean "absent": visit-window bounds may be blank in the
     export; a zero time.Time stands in for them

SEE ALSO:
  - schema.go: per-kind column layout and default join keys
  - dataset/: loaders that produce these records
  - agreement/: the computation that consumes them
*/
package rfid

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntityKind selects which pair of input tables a run validates.
type EntityKind string

const (
	KindPatient  EntityKind = "patient"
	KindProvider EntityKind = "provider"
)

// Kinds lists the entity kinds in the order runs process them.
var Kinds = []EntityKind{KindPatient, KindProvider}

// ParseKind converts a command-line value into an EntityKind.
func ParseKind(s string) (EntityKind, error) {
	switch EntityKind(strings.ToLower(s)) {
	case KindPatient:
		return KindPatient, nil
	case KindProvider:
		return KindProvider, nil
	}
	return "", fmt.Errorf("unknown entity kind %q (want patient or provider)", s)
}

// SignalReading is one row of the signals table: a tag, a timestamp, and one
// signal strength per candidate room. The identifier fields that are not part
// of the row's kind are left at their zero values (a provider reading has no
// CSN, a patient reading has no UMid).
type SignalReading struct {
	// TagID identifies the RFID tag that produced the reading.
	TagID uint64

	// Time is the reading's timestamp, parsed from the Time column.
	Time time.Time

	// CSN is the clinical encounter number (patient rows only).
	CSN uint64

	// UMid is the person identifier (provider rows only).
	UMid uint64

	// ClarityStart/ClarityEnd bound the recorded clinical visit (patient
	// rows only). Zero when the export left the field blank.
	ClarityStart time.Time
	ClarityEnd   time.Time

	// Signals holds one strength per room column, in header order.
	Signals []decimal.Decimal

	// Location is the argmax room name, attached by agreement.DeriveLocations.
	Location string
}

// ReferenceRecord is one row of the ground-truth location table.
type ReferenceRecord struct {
	TagID uint64
	CSN   uint64
	UMid  uint64
	Time  time.Time
	Room1 string
}

// ReadStats counts what happened while loading one table.
type ReadStats struct {
	// FileName is the path the table was read from.
	FileName string

	// TotalRows is the number of data rows in the file.
	TotalRows int

	// KeptRows is the number of rows retained after parsing.
	KeptRows int

	// MissingWindowStart and MissingWindowEnd count rows whose visit-window
	// bound was blank. Only meaningful for patient signal tables.
	MissingWindowStart int
	MissingWindowEnd   int
}
