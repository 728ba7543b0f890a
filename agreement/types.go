/*
Package agreement computes how often the RFID argmax location matches the
ground-truth tracking table.

PURPOSE:
  The whole validation is one pass: attach an argmax room to every signal
  reading, inner-join readings to reference records on identifier + timestamp,
  and report count(predicted == reference) / count(joined) as an exact
  fraction. Patient runs additionally report what share of readings fall on
  or after the recorded visit start, and on or before the visit end, each
  bound checked on its own.

KEY CONCEPTS IN THIS FILE (types.go):
  - Fraction: an exact numerator/denominator pair; undefined when nothing
    joined (rendered as NaN, never silently 0)
  - JoinedPair: one reading matched to one reference record
  - Report: everything a run prints or exports

DESIGN PRINCIPLES:
  1. Strict inner join: an unmatched reading leaves both the numerator and
     the denominator
  2. Exactness: counts divide through decimal.Decimal, not float64
  3. Determinism: argmax ties break to the first room column holding the max

SEE ALSO:
  - derive.go: argmax location derivation
  - join.go: the identifier + timestamp equi-join
  - metrics.go: agreement, coverage, and the per-room breakdown
*/
package agreement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clarion/rfid-validate/rfid"
)

// Fraction is an exact count ratio. A zero denominator means the value is
// undefined; String renders that as NaN rather than crashing or reporting 0.
type Fraction struct {
	Num int
	Den int
}

// Defined reports whether the fraction has a value.
func (f Fraction) Defined() bool { return f.Den > 0 }

// Decimal returns the exact ratio. ok is false when undefined.
func (f Fraction) Decimal() (decimal.Decimal, bool) {
	if !f.Defined() {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(int64(f.Num)).Div(decimal.NewFromInt(int64(f.Den))), true
}

// Float64 returns the ratio as a float; ok is false when undefined.
func (f Fraction) Float64() (float64, bool) {
	d, ok := f.Decimal()
	if !ok {
		return 0, false
	}
	v, _ := d.Float64()
	return v, true
}

func (f Fraction) String() string {
	d, ok := f.Decimal()
	if !ok {
		return "NaN"
	}
	return d.String()
}

// JoinedPair is one signal reading matched to one reference record sharing
// the same join key values and timestamp.
type JoinedPair struct {
	Reading *rfid.SignalReading
	Ref     *rfid.ReferenceRecord
}

// Mismatch is a joined pair whose predicted and reference rooms differ.
type Mismatch struct {
	TagID     uint64
	Time      time.Time
	Predicted string
	Reference string
}

// RoomAgreement breaks the agreement down by reference room.
type RoomAgreement struct {
	Room    string
	Matched int
	Total   int
}

// Rate is the per-room agreement fraction.
func (r RoomAgreement) Rate() Fraction { return Fraction{Num: r.Matched, Den: r.Total} }

// Report is the full result of validating one entity kind.
type Report struct {
	Entity        rfid.EntityKind
	SignalsFile   string
	ReferenceFile string
	JoinKeys      string

	ReadingCount   int
	ReferenceCount int
	JoinedCount    int

	Agreement Fraction

	// CoverageStart/CoverageEnd are nil for kinds without a visit window.
	CoverageStart *Fraction
	CoverageEnd   *Fraction

	Rooms      []RoomAgreement
	Mismatches []Mismatch
}
