package agreement

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/clarion/rfid-validate/rfid"
)

// DeriveLocations attaches the argmax room to every reading: the name of the
// room column holding the row's maximum signal strength. Only the room
// columns participate; identifier columns were split off at load time.
//
// Ties break to the first column holding the maximum, so an all-zero row
// predicts the first room. That mirrors how the original check resolved
// ties and keeps the derivation deterministic.
func DeriveLocations(readings []*rfid.SignalReading, rooms []string) error {
	if len(rooms) == 0 {
		return fmt.Errorf("derive locations: no room columns")
	}
	for i, r := range readings {
		if len(r.Signals) != len(rooms) {
			return fmt.Errorf("derive locations: reading %d has %d signals for %d rooms",
				i+1, len(r.Signals), len(rooms))
		}
		r.Location = rooms[argmax(r.Signals)]
	}
	return nil
}

// argmax returns the index of the first occurrence of the maximum.
func argmax(xs []decimal.Decimal) int {
	best := 0
	for i := 1; i < len(xs); i++ {
		if xs[i].GreaterThan(xs[best]) {
			best = i
		}
	}
	return best
}
