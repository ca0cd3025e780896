package effects

import (
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"github.com/cbegin/eqlink-go/internal/eq"
)

// PEQ is a parametric equalizer with one biquad section per band filter.
type PEQ struct {
	l, r  *biquad.Chain
	bands int
}

// NewPEQ designs a section for every band filter in filters. Pseudo-filters
// (crossover, loudness, subwoofer), invalid entries and frequencies outside
// (0, sampleRate/2) are skipped.
func NewPEQ(filters []eq.Filter, sampleRate float64) *PEQ {
	coeffs := make([]biquad.Coefficients, 0, len(filters))
	for _, f := range filters {
		if c, ok := Coefficients(f, sampleRate); ok {
			coeffs = append(coeffs, c)
		}
	}
	return &PEQ{
		l:     biquad.NewChain(coeffs),
		r:     biquad.NewChain(coeffs),
		bands: len(coeffs),
	}
}

// Coefficients designs the biquad for a single band filter.
func Coefficients(f eq.Filter, sampleRate float64) (biquad.Coefficients, bool) {
	if f.F <= 0 || f.F >= sampleRate/2 {
		return biquad.Coefficients{}, false
	}
	q := f.Q
	if q <= 0 {
		q = eq.QTable[eq.DefaultQIndex]
	}
	switch f.Type {
	case eq.TypePeak:
		if f.G == 0 {
			return biquad.Coefficients{}, false
		}
		return design.Peak(f.F, f.G, q, sampleRate), true
	case eq.TypeLowShelf:
		return design.LowShelf(f.F, f.G, q, sampleRate), true
	case eq.TypeHighShelf:
		return design.HighShelf(f.F, f.G, q, sampleRate), true
	case eq.TypeLowPass:
		return design.Lowpass(f.F, q, sampleRate), true
	case eq.TypeHighPass:
		return design.Highpass(f.F, q, sampleRate), true
	case eq.TypeAllPass:
		return design.Allpass(f.F, q, sampleRate), true
	default:
		return biquad.Coefficients{}, false
	}
}

// Bands returns the number of designed sections.
func (p *PEQ) Bands() int { return p.bands }

func (p *PEQ) Process(l, r float64) (float64, float64) {
	if p.bands == 0 {
		return l, r
	}
	return p.l.ProcessSample(l), p.r.ProcessSample(r)
}

func (p *PEQ) Reset() {
	p.l.Reset()
	p.r.Reset()
}
