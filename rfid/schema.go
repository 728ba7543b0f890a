package rfid

import (
	"fmt"
	"strings"
)

// JoinKey names an identifier column used to match a signal reading to a
// reference record. The timestamp is always part of the join and is not
// listed here. The signals export spells the tag column "TagId" and the
// reference table spells it "TagID"; both parse to KeyTag.
type JoinKey string

const (
	KeyTag  JoinKey = "TagId"
	KeyCSN  JoinKey = "CSN"
	KeyUMid JoinKey = "UMid"
)

// ParseJoinKeys converts a comma-separated column list into join keys.
// "Time" may appear in the list but adds nothing; the timestamp is part of
// every join.
func ParseJoinKeys(spec string) ([]JoinKey, error) {
	var keys []JoinKey
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch strings.ToLower(part) {
		case "time":
			continue
		case "tagid":
			keys = append(keys, KeyTag)
		case "csn":
			keys = append(keys, KeyCSN)
		case "umid":
			keys = append(keys, KeyUMid)
		default:
			return nil, fmt.Errorf("unknown join key %q (want TagId, CSN, or UMid)", part)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("empty join key list %q", spec)
	}
	return keys, nil
}

// ReadingValue extracts the key's value from a signal reading.
func (k JoinKey) ReadingValue(r *SignalReading) uint64 {
	switch k {
	case KeyCSN:
		return r.CSN
	case KeyUMid:
		return r.UMid
	default:
		return r.TagID
	}
}

// ReferenceValue extracts the key's value from a reference record.
func (k JoinKey) ReferenceValue(r *ReferenceRecord) uint64 {
	switch k {
	case KeyCSN:
		return r.CSN
	case KeyUMid:
		return r.UMid
	default:
		return r.TagID
	}
}

// Schema describes the layout of one kind's signals table: the ordered
// identifier columns that precede the per-room signal block, and which
// identifier columns the reference join uses by default.
//
// The two historical revisions of this check hard-coded the start of the
// signal block (index 5 in one, 4 in the other) regardless of kind; here the
// boundary always derives from the prefix, and a run that needs to reproduce
// a historical slice passes an explicit offset instead.
type Schema struct {
	Kind EntityKind

	// Prefix lists the identifier columns, in order, before the room block.
	Prefix []string

	// DefaultJoinKeys are the identifier columns joined on (plus timestamp).
	DefaultJoinKeys []JoinKey

	// HasVisitWindow is true when the prefix carries ClarityStart/ClarityEnd.
	HasVisitWindow bool
}

// SchemaFor returns the column layout for an entity kind.
func SchemaFor(kind EntityKind) (Schema, error) {
	switch kind {
	case KindPatient:
		return Schema{
			Kind:            KindPatient,
			Prefix:          []string{"TagId", "CSN", "ClarityStart", "ClarityEnd", "Time"},
			DefaultJoinKeys: []JoinKey{KeyCSN},
			HasVisitWindow:  true,
		}, nil
	case KindProvider:
		return Schema{
			Kind:            KindProvider,
			Prefix:          []string{"TagId", "UMid", "Time"},
			DefaultJoinKeys: []JoinKey{KeyUMid},
		}, nil
	}
	return Schema{}, fmt.Errorf("no schema for entity kind %q", kind)
}

// SignalOffset is the default index of the first room column.
func (s Schema) SignalOffset() int { return len(s.Prefix) }
