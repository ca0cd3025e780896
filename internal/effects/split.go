package effects

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/filter/crossover"
)

// DefaultCrossoverOrder is a 24 dB/octave Linkwitz-Riley split.
const DefaultCrossoverOrder = 4

// Split divides a stereo signal into low and high bands with a
// Linkwitz-Riley crossover per channel. The bands sum to an allpass response.
type Split struct {
	l, r *crossover.Crossover
}

func NewSplit(freq float64, order int, sampleRate float64) (*Split, error) {
	l, err := crossover.New(freq, order, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	r, err := crossover.New(freq, order, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	return &Split{l: l, r: r}, nil
}

// Freq returns the split frequency in Hz.
func (s *Split) Freq() float64 { return s.l.Freq() }

func (s *Split) Process(l, r float64) (lowL, lowR, highL, highR float64) {
	lowL, highL = s.l.ProcessSample(l)
	lowR, highR = s.r.ProcessSample(r)
	return lowL, lowR, highL, highR
}

func (s *Split) Reset() {
	s.l.Reset()
	s.r.Reset()
}
