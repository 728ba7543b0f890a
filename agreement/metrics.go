package agreement

import (
	"sort"

	"github.com/clarion/rfid-validate/dataset"
	"github.com/clarion/rfid-validate/rfid"
)

// Agree computes the headline metric over the joined pairs:
// count(predicted == reference) / count(pairs). Undefined when nothing
// joined; callers render that as NaN.
func Agree(pairs []JoinedPair) Fraction {
	f := Fraction{Den: len(pairs)}
	for _, p := range pairs {
		if p.Reading.Location == p.Ref.Room1 {
			f.Num++
		}
	}
	return f
}

// CoverageStart is the fraction of readings whose timestamp falls on or
// after the recorded visit start. Computed over ALL readings, not the joined
// subset; a reading with a blank start bound counts as not covered but stays
// in the denominator.
func CoverageStart(readings []*rfid.SignalReading) Fraction {
	f := Fraction{Den: len(readings)}
	for _, r := range readings {
		if !r.ClarityStart.IsZero() && !r.Time.Before(r.ClarityStart) {
			f.Num++
		}
	}
	return f
}

// CoverageEnd is the fraction of readings whose timestamp falls on or before
// the recorded visit end. Evaluated independently of CoverageStart; the two
// are separate checks, not a joint inside-window test.
func CoverageEnd(readings []*rfid.SignalReading) Fraction {
	f := Fraction{Den: len(readings)}
	for _, r := range readings {
		if !r.ClarityEnd.IsZero() && !r.Time.After(r.ClarityEnd) {
			f.Num++
		}
	}
	return f
}

// RoomBreakdown splits the agreement by reference room, sorted by room name.
func RoomBreakdown(pairs []JoinedPair) []RoomAgreement {
	byRoom := make(map[string]*RoomAgreement)
	for _, p := range pairs {
		ra, ok := byRoom[p.Ref.Room1]
		if !ok {
			ra = &RoomAgreement{Room: p.Ref.Room1}
			byRoom[p.Ref.Room1] = ra
		}
		ra.Total++
		if p.Reading.Location == p.Ref.Room1 {
			ra.Matched++
		}
	}

	out := make([]RoomAgreement, 0, len(byRoom))
	for _, ra := range byRoom {
		out = append(out, *ra)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out
}

// Validate runs the whole computation for one entity kind: derive argmax
// locations, join against the reference table, and fill a Report.
func Validate(tbl *dataset.SignalTable, refs []*rfid.ReferenceRecord, keys []rfid.JoinKey) (*Report, error) {
	if len(keys) == 0 {
		keys = tbl.Schema.DefaultJoinKeys
	}

	if err := DeriveLocations(tbl.Readings, tbl.Rooms); err != nil {
		return nil, err
	}

	pairs := Join(tbl.Readings, refs, keys)

	rep := &Report{
		Entity:         tbl.Schema.Kind,
		SignalsFile:    tbl.Stats.FileName,
		JoinKeys:       KeyNames(keys),
		ReadingCount:   len(tbl.Readings),
		ReferenceCount: len(refs),
		JoinedCount:    len(pairs),
		Agreement:      Agree(pairs),
		Rooms:          RoomBreakdown(pairs),
	}

	for _, p := range pairs {
		if p.Reading.Location != p.Ref.Room1 {
			rep.Mismatches = append(rep.Mismatches, Mismatch{
				TagID:     p.Reading.TagID,
				Time:      p.Reading.Time,
				Predicted: p.Reading.Location,
				Reference: p.Ref.Room1,
			})
		}
	}

	if tbl.Schema.HasVisitWindow {
		cs := CoverageStart(tbl.Readings)
		ce := CoverageEnd(tbl.Readings)
		rep.CoverageStart = &cs
		rep.CoverageEnd = &ce
	}

	return rep, nil
}
