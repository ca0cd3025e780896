package pipeline

import (
	"log/slog"

	"github.com/cbegin/eqlink-go/internal/effects"
	"github.com/cbegin/eqlink-go/internal/eq"
)

// ProcessorConfig holds the static parameters of a Processor.
type ProcessorConfig struct {
	CrossoverOrder   int
	LoudnessBassHz   float64
	LoudnessTrebleHz float64
}

func (c ProcessorConfig) withDefaults() ProcessorConfig {
	if c.CrossoverOrder == 0 {
		c.CrossoverOrder = effects.DefaultCrossoverOrder
	}
	if c.LoudnessBassHz == 0 {
		c.LoudnessBassHz = effects.DefaultLoudnessBassHz
	}
	if c.LoudnessTrebleHz == 0 {
		c.LoudnessTrebleHz = effects.DefaultLoudnessTrebleHz
	}
	return c
}

// Processor runs stereo frames through PEQ, loudness, volume and the
// topology stage. Normal output is stereo; crossover output has four
// channels ordered low-L, low-R, high-L, high-R. It is not safe for
// concurrent use.
type Processor struct {
	cfg        ProcessorConfig
	topology   Topology
	sampleRate float64
	log        *slog.Logger

	equalizer []eq.Filter
	crossover eq.Filter
	loudness  uint8
	volume    float64

	peq   *effects.PEQ
	loud  *effects.Loudness
	chain *effects.Chain
	split *effects.Split
}

func NewProcessor(topology Topology, sampleRate int, cfg ProcessorConfig, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	p := &Processor{
		cfg:        cfg.withDefaults(),
		topology:   topology,
		sampleRate: float64(sampleRate),
		log:        log,
		volume:     1,
	}
	p.rebuild()
	return p
}

// Channels returns the number of output channels.
func (p *Processor) Channels() int {
	if p.topology == TopologyCrossover {
		return 4
	}
	return 2
}

func (p *Processor) SampleRate() int { return int(p.sampleRate) }

// SetSampleRate redesigns every stage for a new input rate.
func (p *Processor) SetSampleRate(rate int) {
	if float64(rate) == p.sampleRate || rate <= 0 {
		return
	}
	p.sampleRate = float64(rate)
	p.rebuild()
}

func (p *Processor) SetEqualizer(filters []eq.Filter) {
	p.equalizer = append([]eq.Filter(nil), filters...)
	p.peq = effects.NewPEQ(p.equalizer, p.sampleRate)
	p.relink()
}

func (p *Processor) SetCrossover(f eq.Filter) {
	p.crossover = f
	p.split = nil
	if f.Type != eq.TypeCrossover {
		return
	}
	s, err := effects.NewSplit(f.F, p.cfg.CrossoverOrder, p.sampleRate)
	if err != nil {
		p.log.Warn("crossover disabled", "freq", f.F, "error", err)
		return
	}
	p.split = s
}

func (p *Processor) SetLoudness(level uint8) {
	p.loudness = level
	p.loud = effects.NewLoudness(level, p.cfg.LoudnessBassHz, p.cfg.LoudnessTrebleHz, p.sampleRate)
	p.relink()
}

func (p *Processor) SetVolume(level float64) {
	if level < 0 {
		level = 0
	}
	p.volume = level
	p.relink()
}

func (p *Processor) Volume() float64 { return p.volume }

// relink orders the stereo stages: PEQ, loudness, volume.
func (p *Processor) relink() {
	chain := effects.NewChain()
	if p.peq != nil {
		chain.Add(p.peq)
	}
	if p.loud != nil {
		chain.Add(p.loud)
	}
	chain.Add(effects.Gain(p.volume))
	p.chain = chain
}

func (p *Processor) rebuild() {
	p.SetEqualizer(p.equalizer)
	p.SetCrossover(p.crossover)
	p.SetLoudness(p.loudness)
}

// Process consumes interleaved stereo frames and appends the output frames to dst.
func (p *Processor) Process(dst, in []float64) []float64 {
	for i := 0; i+1 < len(in); i += 2 {
		l, r := p.chain.Process(in[i], in[i+1])
		if p.topology != TopologyCrossover {
			dst = append(dst, l, r)
			continue
		}
		if p.split == nil {
			dst = append(dst, 0, 0, l, r)
			continue
		}
		lowL, lowR, highL, highR := p.split.Process(l, r)
		dst = append(dst, lowL, lowR, highL, highR)
	}
	return dst
}

// Fold mixes frames of inCh channels down to outCh by summing channel pairs.
func Fold(in []float64, inCh, outCh int) []float64 {
	if inCh == outCh || outCh <= 0 {
		return in
	}
	frames := len(in) / inCh
	out := make([]float64, frames*outCh)
	for f := 0; f < frames; f++ {
		for c := 0; c < inCh; c++ {
			out[f*outCh+c%outCh] += in[f*inCh+c]
		}
	}
	return out
}
