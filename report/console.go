/*
Package report renders a validation run for its two consumers: the console
(the numeric lines the original check printed) and, optionally, a spreadsheet
for the analysts who review mismatches by hand.
*/
package report

import (
	"fmt"
	"io"

	"github.com/clarion/rfid-validate/agreement"
)

// WriteConsole prints one entity's report as human-readable lines.
//
// The headline lines keep the shape of the original check: the agreement
// fraction, then for patients the two independent coverage fractions. The
// counts line and per-room block are additions; an undefined agreement
// (nothing joined) prints as NaN.
func WriteConsole(w io.Writer, rep *agreement.Report) error {
	if _, err := fmt.Fprintf(w, "== %s ==\n", rep.Entity); err != nil {
		return err
	}
	fmt.Fprintf(w, "Readings: %d  Reference rows: %d  Joined: %d (join on %s)\n",
		rep.ReadingCount, rep.ReferenceCount, rep.JoinedCount, rep.JoinKeys)
	fmt.Fprintf(w, "Agreement: %s\n", rep.Agreement)

	if rep.CoverageStart != nil {
		fmt.Fprintf(w, "Coverage (Time >= ClarityStart): %s\n", rep.CoverageStart)
	}
	if rep.CoverageEnd != nil {
		fmt.Fprintf(w, "Coverage (Time <= ClarityEnd): %s\n", rep.CoverageEnd)
	}

	if len(rep.Rooms) > 0 {
		fmt.Fprintf(w, "Per-room agreement:\n")
		for _, room := range rep.Rooms {
			fmt.Fprintf(w, "  %-16s %d/%d  %s\n",
				room.Room, room.Matched, room.Total, room.Rate())
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}
