package effects

import (
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// Default loudness shelf corner frequencies.
const (
	DefaultLoudnessBassHz   = 80.0
	DefaultLoudnessTrebleHz = 10000.0
)

// MaxLoudnessLevel bounds the bass boost in dB.
const MaxLoudnessLevel = 24

// Loudness boosts bass by level dB and treble by level/2 dB to compensate
// for reduced hearing sensitivity at low playback volume. Level 0 is a bypass.
type Loudness struct {
	level uint8
	l, r  *biquad.Chain
}

func NewLoudness(level uint8, bassHz, trebleHz, sampleRate float64) *Loudness {
	if level > MaxLoudnessLevel {
		level = MaxLoudnessLevel
	}
	ld := &Loudness{level: level}
	if level == 0 {
		return ld
	}
	var coeffs []biquad.Coefficients
	const q = 0.707
	if bassHz > 0 && bassHz < sampleRate/2 {
		coeffs = append(coeffs, design.LowShelf(bassHz, float64(level), q, sampleRate))
	}
	if trebleHz > 0 && trebleHz < sampleRate/2 {
		coeffs = append(coeffs, design.HighShelf(trebleHz, float64(level)/2, q, sampleRate))
	}
	ld.l = biquad.NewChain(coeffs)
	ld.r = biquad.NewChain(coeffs)
	return ld
}

func (ld *Loudness) Level() uint8 { return ld.level }

func (ld *Loudness) Process(l, r float64) (float64, float64) {
	if ld.l == nil {
		return l, r
	}
	return ld.l.ProcessSample(l), ld.r.ProcessSample(r)
}

func (ld *Loudness) Reset() {
	if ld.l != nil {
		ld.l.Reset()
		ld.r.Reset()
	}
}
