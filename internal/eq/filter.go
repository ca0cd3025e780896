// Package eq holds the equalizer data model shared by the codec, the
// controller and the DSP pipeline.
package eq

import "fmt"

// Type identifies the semantic role of a Filter. Values match the wire byte.
type Type uint8

const (
	TypeInvalid Type = iota
	TypePeak
	TypeLowPass
	TypeHighPass
	TypeLowShelf
	TypeHighShelf
	TypeAllPass
	TypeCrossover
	TypeSubwoofer
	TypeLoudness
)

// ParseType maps an untrusted wire byte to a Type. Unknown values map to
// TypeInvalid and ok is false.
func ParseType(b byte) (t Type, ok bool) {
	switch Type(b) {
	case TypeInvalid, TypePeak, TypeLowPass, TypeHighPass, TypeLowShelf,
		TypeHighShelf, TypeAllPass, TypeCrossover, TypeSubwoofer, TypeLoudness:
		return Type(b), true
	default:
		return TypeInvalid, false
	}
}

func (t Type) String() string {
	switch t {
	case TypeInvalid:
		return "invalid"
	case TypePeak:
		return "peak"
	case TypeLowPass:
		return "lowpass"
	case TypeHighPass:
		return "highpass"
	case TypeLowShelf:
		return "lowshelf"
	case TypeHighShelf:
		return "highshelf"
	case TypeAllPass:
		return "allpass"
	case TypeCrossover:
		return "crossover"
	case TypeSubwoofer:
		return "subwoofer"
	case TypeLoudness:
		return "loudness"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// TypeByName is the inverse of Type.String for the known types.
func TypeByName(name string) (Type, bool) {
	for t := TypeInvalid; t <= TypeLoudness; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return TypeInvalid, false
}

// Filter is the internal form of one wire filter record.
// F is in Hz, G in dB (or the discrete level for TypeLoudness), Q is the quality factor.
type Filter struct {
	Type Type
	F    float64
	G    float64
	Q    float64
}

func (f Filter) String() string {
	return fmt.Sprintf("%s f=%g g=%g q=%g", f.Type, f.F, f.G, f.Q)
}

// Group is a logical filter group addressed by the control link.
type Group uint8

const (
	GroupEqualizer Group = iota
	GroupAuxiliary
)

func (g Group) String() string {
	switch g {
	case GroupEqualizer:
		return "equalizer"
	case GroupAuxiliary:
		return "auxiliary"
	default:
		return fmt.Sprintf("group(%d)", uint8(g))
	}
}

// Groups lists every group in a stable order.
var Groups = []Group{GroupEqualizer, GroupAuxiliary}

// Find returns the first filter of the given type.
func Find(filters []Filter, t Type) (Filter, bool) {
	for _, f := range filters {
		if f.Type == t {
			return f, true
		}
	}
	return Filter{}, false
}

// LoudnessLevel returns the discrete level of the first loudness entry, or 0
// when filters has none.
func LoudnessLevel(filters []Filter) uint8 {
	f, ok := Find(filters, TypeLoudness)
	if !ok || f.G <= 0 {
		return 0
	}
	if f.G >= 255 {
		return 255
	}
	return uint8(f.G)
}
