package eqlink

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cbegin/eqlink-go/internal/eq"
	"github.com/cbegin/eqlink-go/internal/pipeline"
)

var (
	ErrNotWAV           = errors.New("eqlink: not a wav file")
	ErrUnsupportedInput = errors.New("eqlink: only 16-bit mono or stereo pcm is supported")
)

const renderFrames = 4096

type RenderOptions struct {
	Processor pipeline.ProcessorConfig
	// Volume scales the output. Zero means unity.
	Volume float64
	Logger *slog.Logger
}

// RenderInfo describes a rendered file.
type RenderInfo struct {
	SampleRate int
	Channels   int
	Frames     int
	Topology   pipeline.Topology
}

// Render runs a 16-bit WAV through the equalizer chain configured by peq and
// aux and writes the result as 16-bit WAV. A crossover entry in aux renders
// four channels ordered low-L, low-R, high-L, high-R.
func Render(in io.ReadSeeker, out io.WriteSeeker, peq, aux []eq.Filter, opts RenderOptions) (RenderInfo, error) {
	dec := wav.NewDecoder(in)
	if !dec.IsValidFile() {
		return RenderInfo{}, ErrNotWAV
	}
	if dec.BitDepth != 16 || (dec.NumChans != 1 && dec.NumChans != 2) {
		return RenderInfo{}, fmt.Errorf("%w: %d-bit, %d channels", ErrUnsupportedInput, dec.BitDepth, dec.NumChans)
	}
	rate := int(dec.SampleRate)
	inCh := int(dec.NumChans)

	topology := pipeline.TopologyNormal
	cross, ok := eq.Find(aux, eq.TypeCrossover)
	if ok {
		topology = pipeline.TopologyCrossover
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	proc := pipeline.NewProcessor(topology, rate, opts.Processor, log)
	proc.SetEqualizer(peq)
	proc.SetCrossover(cross)
	proc.SetLoudness(eq.LoudnessLevel(aux))
	if opts.Volume > 0 {
		proc.SetVolume(opts.Volume)
	}

	info := RenderInfo{SampleRate: rate, Channels: proc.Channels(), Topology: topology}
	enc := wav.NewEncoder(out, rate, 16, info.Channels, 1)
	outFormat := &goaudio.Format{NumChannels: info.Channels, SampleRate: rate}

	buf := &goaudio.IntBuffer{Format: dec.Format(), Data: make([]int, renderFrames*inCh), SourceBitDepth: 16}
	stereo := make([]float64, 0, renderFrames*2)
	processed := make([]float64, 0, renderFrames*info.Channels)
	for {
		buf.Data = buf.Data[:cap(buf.Data)]
		n, err := dec.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return info, fmt.Errorf("decode: %w", err)
		}
		if n == 0 {
			break
		}
		stereo = stereo[:0]
		for i := 0; i+inCh <= n; i += inCh {
			l := float64(buf.Data[i]) / 32768
			r := l
			if inCh == 2 {
				r = float64(buf.Data[i+1]) / 32768
			}
			stereo = append(stereo, l, r)
		}
		processed = proc.Process(processed[:0], stereo)

		ints := make([]int, len(processed))
		for i, s := range processed {
			ints[i] = toPCM16(s)
		}
		if err := enc.Write(&goaudio.IntBuffer{Format: outFormat, Data: ints, SourceBitDepth: 16}); err != nil {
			return info, fmt.Errorf("encode: %w", err)
		}
		info.Frames += len(stereo) / 2
	}
	if err := enc.Close(); err != nil {
		return info, fmt.Errorf("encode: %w", err)
	}
	return info, nil
}

func toPCM16(s float64) int {
	v := int(s * 32767)
	return min(max(v, -32768), 32767)
}
