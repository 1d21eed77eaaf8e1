// Package eventstamp implements the hybrid logical clock stamp used to
// order every write in a driftdb document store.
//
// A Stamp is a triple (timestamp_ms, counter, nonce). Its canonical string
// form is lexicographically ordered the same as the numeric triple, so
// replicas that only ever compare serialized stamps still get the correct
// total order.
package eventstamp

import (
	"fmt"
	"strconv"
	"strings"
)

// Stamp is a single hybrid logical clock reading.
type Stamp struct {
	Millis  uint64
	Counter uint16
	Nonce   uint16
}

// Min is the distinguished stamp used to seed a fresh Clock. It compares
// less than any stamp a Clock will ever produce.
var Min = Stamp{}

// Compare returns -1, 0 or 1 as a is less than, equal to, or greater than b.
// Comparison is lexicographic on (Millis, Counter, Nonce), matching the
// ordering of the canonical string form.
func Compare(a, b Stamp) int {
	switch {
	case a.Millis != b.Millis:
		if a.Millis < b.Millis {
			return -1
		}
		return 1
	case a.Counter != b.Counter:
		if a.Counter < b.Counter {
			return -1
		}
		return 1
	case a.Nonce != b.Nonce:
		if a.Nonce < b.Nonce {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Less reports whether a orders strictly before b.
func Less(a, b Stamp) bool { return Compare(a, b) < 0 }

// Max returns whichever of a, b orders later. On an exact tie it returns b,
// matching the merge tie-break rule of preferring the "from" operand.
func Max(a, b Stamp) Stamp {
	if Compare(a, b) > 0 {
		return a
	}
	return b
}

// String renders the canonical "ISO8601|hhhh|hhhh" form: millisecond-precision
// UTC timestamp, then the counter and nonce as zero-padded 4-hex-digit
// lowercase values, pipe-separated.
func (s Stamp) String() string {
	t := msToTime(s.Millis)
	return fmt.Sprintf("%s|%04x|%04x", t.Format("2006-01-02T15:04:05.000Z"), s.Counter, s.Nonce)
}

// Parse is the inverse of String.
func Parse(raw string) (Stamp, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 3 {
		return Stamp{}, fmt.Errorf("eventstamp: malformed stamp %q", raw)
	}
	t, err := parseTime(parts[0])
	if err != nil {
		return Stamp{}, fmt.Errorf("eventstamp: malformed timestamp in %q: %w", raw, err)
	}
	counter, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return Stamp{}, fmt.Errorf("eventstamp: malformed counter in %q: %w", raw, err)
	}
	nonce, err := strconv.ParseUint(parts[2], 16, 16)
	if err != nil {
		return Stamp{}, fmt.Errorf("eventstamp: malformed nonce in %q: %w", raw, err)
	}
	return Stamp{Millis: timeToMs(t), Counter: uint16(counter), Nonce: uint16(nonce)}, nil
}

// MarshalJSON renders the stamp as its canonical string.
func (s Stamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// UnmarshalJSON parses the canonical string form.
func (s *Stamp) UnmarshalJSON(data []byte) error {
	raw, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
