package agreement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clarion/rfid-validate/rfid"
)

// Join inner-joins signal readings to reference records on the given
// identifier keys plus timestamp. Readings with no matching reference row
// are dropped entirely; they appear in neither the numerator nor the
// denominator of any metric computed over the result.
//
// A reading whose key matches several reference rows yields one pair per
// match, the usual relational (and pandas merge) semantics. In practice the
// smoothed reference table carries one row per tag and minute.
func Join(readings []*rfid.SignalReading, refs []*rfid.ReferenceRecord, keys []rfid.JoinKey) []JoinedPair {
	index := make(map[string][]*rfid.ReferenceRecord, len(refs))
	for _, rec := range refs {
		k := refKey(rec, keys)
		index[k] = append(index[k], rec)
	}

	var pairs []JoinedPair
	for _, r := range readings {
		for _, rec := range index[readingKey(r, keys)] {
			pairs = append(pairs, JoinedPair{Reading: r, Ref: rec})
		}
	}
	return pairs
}

func readingKey(r *rfid.SignalReading, keys []rfid.JoinKey) string {
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(strconv.FormatUint(k.ReadingValue(r), 10))
		b.WriteByte('|')
	}
	b.WriteString(strconv.FormatInt(r.Time.UTC().UnixNano(), 10))
	return b.String()
}

func refKey(r *rfid.ReferenceRecord, keys []rfid.JoinKey) string {
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(strconv.FormatUint(k.ReferenceValue(r), 10))
		b.WriteByte('|')
	}
	b.WriteString(strconv.FormatInt(r.Time.UTC().UnixNano(), 10))
	return b.String()
}

// KeyNames renders a join key set for logs and reports.
func KeyNames(keys []rfid.JoinKey) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	return fmt.Sprintf("%s+Time", strings.Join(names, "+"))
}
