// Package codec converts filters to and from the 4-byte wire records used on
// the control link.
//
// A record is laid out as:
//
//	byte 0  filter type
//	byte 1  index into eq.FrequencyTable
//	byte 2  gain as a signed integer in 0.5 dB steps
//	byte 3  index into eq.QTable
//
// Records are concatenated without framing.
package codec

import (
	"errors"
	"fmt"
	"math"

	"github.com/cbegin/eqlink-go/internal/eq"
)

// RecordSize is the number of bytes per encoded filter.
const RecordSize = 4

// ErrMalformed is returned when a buffer length is not a multiple of RecordSize.
var ErrMalformed = errors.New("codec: buffer length is not a multiple of 4")

// Quantize returns the table index nearest to v in log space. The boundary
// between two neighbours is their geometric mean and a tie resolves to the
// lower index. Values outside the table clamp to the first or last index.
// table must be ascending and hold at least two entries.
func Quantize(v float64, table []float64) uint8 {
	last := len(table) - 2
	i := 0
	for ; i < last; i++ {
		if table[i+1] >= v {
			break
		}
	}
	c := math.Sqrt(table[i] * table[i+1])
	if v <= c {
		return uint8(i)
	}
	return uint8(i + 1)
}

// Lookup returns table[i], or 0 when i is out of range.
func Lookup(i uint8, table []float64) float64 {
	if int(i) >= len(table) {
		return 0
	}
	return table[i]
}

// FrequencyIndex quantizes a frequency in Hz against eq.FrequencyTable.
func FrequencyIndex(f float64) uint8 { return Quantize(f, eq.FrequencyTable[:]) }

// QIndex quantizes a quality factor against eq.QTable.
func QIndex(q float64) uint8 { return Quantize(q, eq.QTable[:]) }

// GainStep converts a gain in dB to 0.5 dB steps, clamped to the int8 range.
func GainStep(g float64) int8 {
	s := math.Round(g * 2)
	switch {
	case math.IsNaN(s):
		return 0
	case s > math.MaxInt8:
		return math.MaxInt8
	case s < math.MinInt8:
		return math.MinInt8
	}
	return int8(s)
}

// Encode writes f into a single record.
func Encode(f eq.Filter) [RecordSize]byte {
	return [RecordSize]byte{
		byte(f.Type),
		FrequencyIndex(f.F),
		byte(GainStep(f.G)),
		QIndex(f.Q),
	}
}

// Decode reads a single record. Unknown type bytes decode to eq.TypeInvalid
// and out-of-range table indices decode to 0.
func Decode(rec [RecordSize]byte) eq.Filter {
	t, _ := eq.ParseType(rec[0])
	return eq.Filter{
		Type: t,
		F:    Lookup(rec[1], eq.FrequencyTable[:]),
		G:    float64(int8(rec[2])) / 2,
		Q:    Lookup(rec[3], eq.QTable[:]),
	}
}

// EncodeFilters encodes filters in order into a buffer of RecordSize*len(filters) bytes.
func EncodeFilters(filters []eq.Filter) []byte {
	out := make([]byte, 0, len(filters)*RecordSize)
	for _, f := range filters {
		rec := Encode(f)
		out = append(out, rec[:]...)
	}
	return out
}

// DecodeFilters decodes a concatenation of records. A buffer whose length is
// not a multiple of RecordSize is rejected as a whole: the result is empty and
// the error wraps ErrMalformed.
func DecodeFilters(data []byte) ([]eq.Filter, error) {
	if len(data)%RecordSize != 0 {
		return []eq.Filter{}, fmt.Errorf("%w (got %d bytes)", ErrMalformed, len(data))
	}
	filters := make([]eq.Filter, 0, len(data)/RecordSize)
	for i := 0; i < len(data); i += RecordSize {
		filters = append(filters, Decode([RecordSize]byte(data[i:i+RecordSize])))
	}
	return filters, nil
}
