package eqlink

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cbegin/eqlink-go/internal/eq"
	"github.com/cbegin/eqlink-go/internal/pipeline"
)

func writeTone(t *testing.T, path string, freq float64, rate, channels, frames int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	data := make([]int, 0, frames*channels)
	for n := 0; n < frames; n++ {
		s := int(16000 * math.Sin(2*math.Pi*freq*float64(n)/float64(rate)))
		for c := 0; c < channels; c++ {
			data = append(data, s)
		}
	}
	buf := &goaudio.IntBuffer{Format: &goaudio.Format{NumChannels: channels, SampleRate: rate}, Data: data, SourceBitDepth: 16}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
}

func render(t *testing.T, in string, peq, aux []eq.Filter) (RenderInfo, *goaudio.IntBuffer) {
	t.Helper()
	src, err := os.Open(in)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	outPath := filepath.Join(t.TempDir(), "out.wav")
	dst, err := os.Create(outPath)
	if err != nil {
		t.Fatal(err)
	}
	info, err := Render(src, dst, peq, aux, RenderOptions{})
	dst.Close()
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	rd, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Close()
	dec := wav.NewDecoder(rd)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if int(dec.NumChans) != info.Channels || int(dec.SampleRate) != info.SampleRate {
		t.Fatalf("output header %d ch %d Hz, info %+v", dec.NumChans, dec.SampleRate, info)
	}
	return info, buf
}

func peakAbs(data []int, channels, channel, from int) int {
	m := 0
	for i := from*channels + channel; i < len(data); i += channels {
		m = max(m, abs(data[i]))
	}
	return m
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestRenderNormalAppliesEqualizer(t *testing.T) {
	in := filepath.Join(t.TempDir(), "tone.wav")
	writeTone(t, in, 1000, 48000, 2, 24000)

	info, flat := render(t, in, nil, nil)
	if info.Topology != pipeline.TopologyNormal || info.Channels != 2 || info.Frames != 24000 {
		t.Fatalf("info = %+v", info)
	}
	_, cut := render(t, in, []eq.Filter{{Type: eq.TypePeak, F: 1000, G: -12, Q: 1}}, nil)

	ref := peakAbs(flat.Data, 2, 0, 12000)
	got := peakAbs(cut.Data, 2, 0, 12000)
	ratio := 20 * math.Log10(float64(got)/float64(ref))
	if ratio > -11 || ratio < -13 {
		t.Fatalf("peak cut %.2f dB, want about -12", ratio)
	}
}

func TestRenderCrossoverSplitsChannels(t *testing.T) {
	in := filepath.Join(t.TempDir(), "mono.wav")
	writeTone(t, in, 5000, 48000, 1, 24000)

	aux := []eq.Filter{{Type: eq.TypeCrossover, F: 100}}
	info, out := render(t, in, nil, aux)
	if info.Topology != pipeline.TopologyCrossover || info.Channels != 4 {
		t.Fatalf("info = %+v", info)
	}
	low := peakAbs(out.Data, 4, 0, 12000)
	high := peakAbs(out.Data, 4, 2, 12000)
	if low > 200 || high < 14000 {
		t.Fatalf("5 kHz tone: low peak %d, high peak %d", low, high)
	}
}

func TestRenderRejectsNonWAV(t *testing.T) {
	_, err := Render(bytes.NewReader([]byte("not a riff file at all")), nil, nil, nil, RenderOptions{})
	if !errors.Is(err, ErrNotWAV) {
		t.Fatalf("Render() error = %v, want ErrNotWAV", err)
	}
}
