package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts interleaved float64 frames between sample rates.
// Equal rates pass samples through untouched.
type Resampler struct {
	in, out   int
	resampler resampling.Resampler
}

func NewResampler(inRate, outRate, channels int) (*Resampler, error) {
	r := &Resampler{in: inRate, out: outRate}
	if inRate == outRate {
		return r, nil
	}
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(inRate),
		OutputRate: float64(outRate),
		Channels:   channels,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	r.resampler = rs
	return r, nil
}

// Passthrough reports whether no conversion happens.
func (r *Resampler) Passthrough() bool { return r.resampler == nil }

func (r *Resampler) Process(samples []float64) ([]float64, error) {
	if r.resampler == nil {
		return samples, nil
	}
	out, err := r.resampler.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	return out, nil
}
