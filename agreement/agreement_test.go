package agreement_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarion/rfid-validate/agreement"
	"github.com/clarion/rfid-validate/dataset"
	"github.com/clarion/rfid-validate/rfid"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func at(minute int) time.Time {
	return time.Date(2018, time.March, 10, 9, minute, 0, 0, time.UTC)
}

func sig(values ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func reading(tag, csn uint64, t time.Time, values ...int64) *rfid.SignalReading {
	return &rfid.SignalReading{TagID: tag, CSN: csn, Time: t, Signals: sig(values...)}
}

func ref(tag, csn uint64, t time.Time, room string) *rfid.ReferenceRecord {
	return &rfid.ReferenceRecord{TagID: tag, CSN: csn, Time: t, Room1: room}
}

// =============================================================================
// ARGMAX DERIVATION
// =============================================================================

func TestDeriveLocations_ArgmaxOverRoomColumns(t *testing.T) {
	// GIVEN: three readings over RoomA,RoomB = (5,1), (2,9), (0,0)
	// WHEN: deriving locations
	// THEN: predicted = RoomA, RoomB, RoomA (all-zero tie breaks to RoomA)

	rooms := []string{"RoomA", "RoomB"}
	readings := []*rfid.SignalReading{
		reading(1, 10, at(0), 5, 1),
		reading(2, 20, at(1), 2, 9),
		reading(3, 30, at(2), 0, 0),
	}

	require.NoError(t, agreement.DeriveLocations(readings, rooms))

	assert.Equal(t, "RoomA", readings[0].Location)
	assert.Equal(t, "RoomB", readings[1].Location)
	assert.Equal(t, "RoomA", readings[2].Location, "tie should break to first-seen max")
}

func TestDeriveLocations_TieBreaksToFirstMax(t *testing.T) {
	// GIVEN: a reading where two rooms share the maximum
	// WHEN: deriving the location
	// THEN: the earlier column wins, deterministically

	rooms := []string{"Exam1", "Exam2", "Exam3"}
	r := reading(1, 10, at(0), 3, 7, 7)

	require.NoError(t, agreement.DeriveLocations([]*rfid.SignalReading{r}, rooms))
	assert.Equal(t, "Exam2", r.Location)
}

func TestDeriveLocations_RejectsShapeMismatch(t *testing.T) {
	// GIVEN: a reading with two signals but three room columns
	// WHEN: deriving locations
	// THEN: the run fails instead of silently reading past the slice

	r := reading(1, 10, at(0), 5, 1)
	err := agreement.DeriveLocations([]*rfid.SignalReading{r}, []string{"A", "B", "C"})
	assert.Error(t, err)

	err = agreement.DeriveLocations([]*rfid.SignalReading{r}, nil)
	assert.Error(t, err, "no room columns at all should fail")
}

// =============================================================================
// JOIN SEMANTICS
// =============================================================================

func TestJoin_StrictInnerJoin_DropsUnmatchedRows(t *testing.T) {
	// GIVEN: two readings, only one with a reference row at the same CSN+Time
	// WHEN: joining
	// THEN: the unmatched reading is absent from the result entirely

	readings := []*rfid.SignalReading{
		reading(1, 100, at(0), 5, 1),
		reading(2, 200, at(1), 2, 9),
	}
	refs := []*rfid.ReferenceRecord{
		ref(1, 100, at(0), "RoomA"),
		ref(9, 999, at(5), "RoomB"), // different key and time
	}

	pairs := agreement.Join(readings, refs, []rfid.JoinKey{rfid.KeyCSN})

	require.Len(t, pairs, 1)
	assert.Equal(t, uint64(100), pairs[0].Reading.CSN)
}

func TestJoin_TimestampMustMatchExactly(t *testing.T) {
	// GIVEN: same CSN but timestamps one minute apart
	// WHEN: joining
	// THEN: no pair; there is no tolerance window

	readings := []*rfid.SignalReading{reading(1, 100, at(0), 5, 1)}
	refs := []*rfid.ReferenceRecord{ref(1, 100, at(1), "RoomA")}

	pairs := agreement.Join(readings, refs, []rfid.JoinKey{rfid.KeyCSN})
	assert.Empty(t, pairs)
}

func TestJoin_ProviderKeyUsesUMid(t *testing.T) {
	// GIVEN: a provider reading and a reference row sharing UMid+Time
	// WHEN: joining on UMid
	// THEN: they pair even though the tag ids differ

	r := &rfid.SignalReading{TagID: 7, UMid: 55, Time: at(0), Signals: sig(1, 2)}
	rec := &rfid.ReferenceRecord{TagID: 8, UMid: 55, Time: at(0), Room1: "RoomB"}

	pairs := agreement.Join([]*rfid.SignalReading{r}, []*rfid.ReferenceRecord{rec},
		[]rfid.JoinKey{rfid.KeyUMid})
	assert.Len(t, pairs, 1)
}

func TestJoin_MultipleReferenceMatches_OnePairEach(t *testing.T) {
	// GIVEN: one reading whose key matches two reference rows
	// WHEN: joining
	// THEN: two pairs come out (relational cross-product semantics)

	readings := []*rfid.SignalReading{reading(1, 100, at(0), 5, 1)}
	refs := []*rfid.ReferenceRecord{
		ref(1, 100, at(0), "RoomA"),
		ref(1, 100, at(0), "RoomB"),
	}

	pairs := agreement.Join(readings, refs, []rfid.JoinKey{rfid.KeyCSN})
	assert.Len(t, pairs, 2)
}

// =============================================================================
// AGREEMENT METRIC
// =============================================================================

func TestAgree_CountsMatchesOverJoinedRows(t *testing.T) {
	// GIVEN: three joined pairs, two agreeing
	// WHEN: computing agreement
	// THEN: 2/3

	rooms := []string{"RoomA", "RoomB"}
	readings := []*rfid.SignalReading{
		reading(1, 100, at(0), 5, 1), // RoomA
		reading(2, 200, at(1), 2, 9), // RoomB
		reading(3, 300, at(2), 8, 1), // RoomA
	}
	require.NoError(t, agreement.DeriveLocations(readings, rooms))

	refs := []*rfid.ReferenceRecord{
		ref(1, 100, at(0), "RoomA"),
		ref(2, 200, at(1), "RoomB"),
		ref(3, 300, at(2), "RoomB"), // disagrees
	}

	pairs := agreement.Join(readings, refs, []rfid.JoinKey{rfid.KeyCSN})
	frac := agreement.Agree(pairs)

	assert.Equal(t, 2, frac.Num)
	assert.Equal(t, 3, frac.Den)
	assert.Equal(t, "0.6666666666666667", frac.String())
}

func TestAgree_EmptyJoin_IsUndefinedNotZero(t *testing.T) {
	// GIVEN: no joined rows at all
	// WHEN: computing agreement
	// THEN: the fraction is undefined and renders as NaN, not 0 and not a panic

	frac := agreement.Agree(nil)

	assert.False(t, frac.Defined())
	assert.Equal(t, "NaN", frac.String())
	_, ok := frac.Float64()
	assert.False(t, ok)
}

// =============================================================================
// COVERAGE METRICS
// =============================================================================

func TestCoverage_BoundsEvaluateIndependently(t *testing.T) {
	// GIVEN: readings around a visit window (start 9:05, end 9:10)
	// WHEN: computing coverage for each bound
	// THEN: each bound is its own fraction over ALL readings, not a joint
	//       inside-window check

	window := func(tag uint64, ts time.Time) *rfid.SignalReading {
		return &rfid.SignalReading{
			TagID: tag, Time: ts,
			ClarityStart: at(5), ClarityEnd: at(10),
			Signals: sig(1),
		}
	}
	readings := []*rfid.SignalReading{
		window(1, at(3)),  // before start, before end
		window(2, at(5)),  // on start (inclusive), before end
		window(3, at(12)), // after start, after end
	}

	start := agreement.CoverageStart(readings)
	end := agreement.CoverageEnd(readings)

	assert.Equal(t, agreement.Fraction{Num: 2, Den: 3}, start, ">= start: readings 2 and 3")
	assert.Equal(t, agreement.Fraction{Num: 2, Den: 3}, end, "<= end: readings 1 and 2")
}

func TestCoverage_MissingBoundCountsAsNotCovered(t *testing.T) {
	// GIVEN: one reading with a blank ClarityStart and one inside the window
	// WHEN: computing start coverage
	// THEN: the blank row stays in the denominator but never the numerator

	readings := []*rfid.SignalReading{
		{TagID: 1, Time: at(6), ClarityStart: at(5), Signals: sig(1)},
		{TagID: 2, Time: at(6), Signals: sig(1)}, // no window recorded
	}

	start := agreement.CoverageStart(readings)
	assert.Equal(t, agreement.Fraction{Num: 1, Den: 2}, start)
}

// =============================================================================
// PER-ROOM BREAKDOWN
// =============================================================================

func TestRoomBreakdown_GroupsByReferenceRoom(t *testing.T) {
	rooms := []string{"RoomA", "RoomB"}
	readings := []*rfid.SignalReading{
		reading(1, 100, at(0), 5, 1), // RoomA
		reading(2, 200, at(1), 5, 1), // RoomA
		reading(3, 300, at(2), 2, 9), // RoomB
	}
	require.NoError(t, agreement.DeriveLocations(readings, rooms))

	refs := []*rfid.ReferenceRecord{
		ref(1, 100, at(0), "RoomA"),
		ref(2, 200, at(1), "RoomB"),
		ref(3, 300, at(2), "RoomB"),
	}
	pairs := agreement.Join(readings, refs, []rfid.JoinKey{rfid.KeyCSN})

	breakdown := agreement.RoomBreakdown(pairs)

	require.Len(t, breakdown, 2)
	assert.Equal(t, agreement.RoomAgreement{Room: "RoomA", Matched: 1, Total: 1}, breakdown[0])
	assert.Equal(t, agreement.RoomAgreement{Room: "RoomB", Matched: 1, Total: 2}, breakdown[1])
}

// =============================================================================
// END-TO-END VALIDATE
// =============================================================================

func TestValidate_PatientTable_FullReport(t *testing.T) {
	// GIVEN: a parsed patient table and a reference table with partial overlap
	// WHEN: validating with the schema's default join keys
	// THEN: agreement covers only the joined rows; coverage covers all rows

	schema, err := rfid.SchemaFor(rfid.KindPatient)
	require.NoError(t, err)

	readings := []*rfid.SignalReading{
		reading(1, 100, at(0), 5, 1), // joins, agrees (RoomA)
		reading(2, 200, at(1), 2, 9), // joins, disagrees (RoomB vs RoomA)
		reading(3, 300, at(2), 5, 1), // no reference row
	}
	for _, r := range readings {
		r.ClarityStart, r.ClarityEnd = at(0), at(30)
	}

	tbl := &dataset.SignalTable{
		Schema:   schema,
		Rooms:    []string{"RoomA", "RoomB"},
		Readings: readings,
		Stats:    rfid.ReadStats{FileName: "patient_signals.csv.gz", TotalRows: 3, KeptRows: 3},
	}
	refs := []*rfid.ReferenceRecord{
		ref(1, 100, at(0), "RoomA"),
		ref(2, 200, at(1), "RoomA"),
	}

	rep, err := agreement.Validate(tbl, refs, nil)
	require.NoError(t, err)

	assert.Equal(t, rfid.KindPatient, rep.Entity)
	assert.Equal(t, "CSN+Time", rep.JoinKeys)
	assert.Equal(t, 3, rep.ReadingCount)
	assert.Equal(t, 2, rep.JoinedCount)
	assert.Equal(t, agreement.Fraction{Num: 1, Den: 2}, rep.Agreement)

	require.NotNil(t, rep.CoverageStart)
	require.NotNil(t, rep.CoverageEnd)
	assert.Equal(t, agreement.Fraction{Num: 3, Den: 3}, *rep.CoverageStart)
	assert.Equal(t, agreement.Fraction{Num: 3, Den: 3}, *rep.CoverageEnd)

	require.Len(t, rep.Mismatches, 1)
	assert.Equal(t, "RoomB", rep.Mismatches[0].Predicted)
	assert.Equal(t, "RoomA", rep.Mismatches[0].Reference)
}

func TestValidate_ProviderTable_NoCoverage(t *testing.T) {
	// GIVEN: a provider table (no visit window in the schema)
	// WHEN: validating
	// THEN: coverage fractions are absent from the report

	schema, err := rfid.SchemaFor(rfid.KindProvider)
	require.NoError(t, err)

	r := &rfid.SignalReading{TagID: 1, UMid: 50, Time: at(0), Signals: sig(3, 4)}
	tbl := &dataset.SignalTable{
		Schema:   schema,
		Rooms:    []string{"RoomA", "RoomB"},
		Readings: []*rfid.SignalReading{r},
	}
	refs := []*rfid.ReferenceRecord{
		{TagID: 1, UMid: 50, Time: at(0), Room1: "RoomB"},
	}

	rep, err := agreement.Validate(tbl, refs, nil)
	require.NoError(t, err)

	assert.Equal(t, "UMid+Time", rep.JoinKeys)
	assert.Nil(t, rep.CoverageStart)
	assert.Nil(t, rep.CoverageEnd)
	assert.Equal(t, agreement.Fraction{Num: 1, Den: 1}, rep.Agreement)
}
