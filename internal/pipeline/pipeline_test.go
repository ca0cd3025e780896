package pipeline

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cbegin/eqlink-go/internal/audio"
	"github.com/cbegin/eqlink-go/internal/eq"
)

func TestTransportAttached(t *testing.T) {
	tests := []struct {
		name string
		t    Transport
		want bool
	}{
		{"detached", Detached, false},
		{"zero block", Transport{FD: 3, Rate: 44100}, false},
		{"zero rate", Transport{FD: 3, BlockSize: 512}, false},
		{"negative fd", Transport{FD: -1, BlockSize: 512, Rate: 44100}, false},
		{"valid", Transport{FD: 0, BlockSize: 512, Rate: 44100}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.t.Attached(); got != tt.want {
				t.Fatalf("Attached() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcessorNormalIsStereo(t *testing.T) {
	p := NewProcessor(TopologyNormal, 48000, ProcessorConfig{}, nil)
	p.SetVolume(0.5)
	out := p.Process(nil, []float64{0.4, -0.2, 0.8, 0})
	want := []float64{0.2, -0.1, 0.4, 0}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
	if p.Channels() != 2 {
		t.Fatalf("channels = %d, want 2", p.Channels())
	}
}

func TestProcessorCrossoverWithoutSplitRoutesHigh(t *testing.T) {
	p := NewProcessor(TopologyCrossover, 48000, ProcessorConfig{}, nil)
	p.SetCrossover(eq.Filter{})
	out := p.Process(nil, []float64{0.3, 0.6})
	want := []float64{0, 0, 0.3, 0.6}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out = %v, want %v", out, want)
		}
	}
}

func TestProcessorCrossoverSplits(t *testing.T) {
	p := NewProcessor(TopologyCrossover, 48000, ProcessorConfig{}, nil)
	p.SetCrossover(eq.Filter{Type: eq.TypeCrossover, F: 100})
	if p.split == nil {
		t.Fatal("split not built")
	}
	in := make([]float64, 2*48000)
	for n := 0; n < 48000; n++ {
		s := math.Sin(2 * math.Pi * 5000 * float64(n) / 48000)
		in[2*n], in[2*n+1] = s, s
	}
	out := p.Process(nil, in)
	if len(out) != 4*48000 {
		t.Fatalf("len = %d, want %d", len(out), 4*48000)
	}
	var low, high float64
	for n := 24000; n < 48000; n++ {
		low = math.Max(low, math.Abs(out[4*n]))
		high = math.Max(high, math.Abs(out[4*n+2]))
	}
	if low > 0.01 || high < 0.9 {
		t.Fatalf("5 kHz tone: low peak %v, high peak %v", low, high)
	}
}

func TestProcessorInvalidCrossoverDisablesSplit(t *testing.T) {
	p := NewProcessor(TopologyCrossover, 48000, ProcessorConfig{CrossoverOrder: 3}, nil)
	p.SetCrossover(eq.Filter{Type: eq.TypeCrossover, F: 100})
	if p.split != nil {
		t.Fatal("odd order should disable split")
	}
}

func TestFold(t *testing.T) {
	got := Fold([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 4, 2)
	want := []float64{4, 6, 12, 14}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fold = %v, want %v", got, want)
		}
	}
	same := []float64{1, 2}
	if out := Fold(same, 2, 2); &out[0] != &same[0] {
		t.Fatal("equal channel counts should pass through")
	}
}

// scriptedReader serves queued blocks to the DSP stream loop.
type scriptedReader struct {
	mu     sync.Mutex
	blocks [][]byte
	eof    bool
}

func (s *scriptedReader) push(b []byte) {
	s.mu.Lock()
	s.blocks = append(s.blocks, b)
	s.mu.Unlock()
}

func (s *scriptedReader) drained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks) == 0
}

func (s *scriptedReader) read(fd int, p []byte, timeoutMs int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.blocks) == 0 {
		if s.eof {
			return 0, io.EOF
		}
		s.mu.Unlock()
		time.Sleep(time.Millisecond)
		s.mu.Lock()
		return 0, errNoData
	}
	n := copy(p, s.blocks[0])
	s.blocks[0] = s.blocks[0][n:]
	if len(s.blocks[0]) == 0 {
		s.blocks = s.blocks[1:]
	}
	return n, nil
}

type recordingOpener struct {
	mu      sync.Mutex
	devices []string
	sinks   []*audio.Discard
}

func (r *recordingOpener) open(device string, rate int) (audio.Sink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if device == "broken" {
		return nil, errors.New("no such device")
	}
	d := &audio.Discard{Rate: rate, Chans: 2}
	r.devices = append(r.devices, device)
	r.sinks = append(r.sinks, d)
	return d, nil
}

func (r *recordingOpener) last() *audio.Discard {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sinks) == 0 {
		return nil
	}
	return r.sinks[len(r.sinks)-1]
}

func pcmBlock(frames int) []byte {
	b := make([]byte, frames*4)
	for i := 0; i < frames*2; i++ {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(int16(1000)))
	}
	return b
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestDSPStreamsToSelectedDevice(t *testing.T) {
	src := &scriptedReader{}
	op := &recordingOpener{}
	d, err := NewDSP(TopologyNormal, Options{SampleRate: 48000, Open: op.open, Read: src.read})
	if err != nil {
		t.Fatalf("new dsp: %v", err)
	}
	defer d.Close()

	d.SetOutputDevice("hw:0,1")
	d.SetTransport(Transport{FD: 7, BlockSize: 1024, Rate: 48000})
	src.push(pcmBlock(256))
	// An odd tail is held until the frame completes.
	src.push(pcmBlock(100)[:3])
	src.push(pcmBlock(100)[3:])

	waitFor(t, func() bool { s := op.last(); return s != nil && s.Written() == 2*356 })
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.devices[0] != "hw:0,1" {
		t.Fatalf("opened %v, want hw:0,1", op.devices)
	}
}

func TestDSPSetTransportIdempotent(t *testing.T) {
	src := &scriptedReader{}
	op := &recordingOpener{}
	d, _ := NewDSP(TopologyNormal, Options{Open: op.open, Read: src.read})
	defer d.Close()
	d.SetOutputDevice("default")

	tr := Transport{FD: 5, BlockSize: 512, Rate: 48000}
	d.SetTransport(tr)
	d.SetTransport(tr)
	if n := len(op.devices); n != 1 {
		t.Fatalf("sink opened %d times, want 1", n)
	}
	d.SetTransport(Detached)
	d.SetTransport(Transport{FD: -1})
	if got := d.Transport(); got != Detached {
		t.Fatalf("transport = %v, want detached", got)
	}
}

func TestDSPDetachWithoutTransport(t *testing.T) {
	d, _ := NewDSP(TopologyCrossover, Options{})
	d.SetTransport(Detached)
	d.Close()
	d.Close()
	if d.Topology() != TopologyCrossover {
		t.Fatalf("topology = %v", d.Topology())
	}
}

func TestDSPBrokenDeviceFallsBackToDiscard(t *testing.T) {
	src := &scriptedReader{}
	op := &recordingOpener{}
	d, _ := NewDSP(TopologyNormal, Options{Open: op.open, Read: src.read})
	defer d.Close()
	d.SetOutputDevice("broken")
	d.SetTransport(Transport{FD: 5, BlockSize: 512, Rate: 48000})
	src.push(pcmBlock(16))
	waitFor(t, src.drained)
}

func TestDSPOutputChangeReopensSink(t *testing.T) {
	src := &scriptedReader{}
	op := &recordingOpener{}
	d, _ := NewDSP(TopologyNormal, Options{Open: op.open, Read: src.read})
	defer d.Close()
	d.SetOutputDevice("a")
	d.SetTransport(Transport{FD: 5, BlockSize: 512, Rate: 48000})
	d.SetOutputDevice("b")
	d.SetOutputDevice("b")
	if len(op.devices) != 2 || op.devices[1] != "b" {
		t.Fatalf("opened %v, want [a b]", op.devices)
	}
}

func TestDSPStopsOnEOF(t *testing.T) {
	src := &scriptedReader{eof: true}
	d, _ := NewDSP(TopologyNormal, Options{Read: src.read})
	d.SetTransport(Transport{FD: 5, BlockSize: 512, Rate: 48000})
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not exit on EOF")
	}
	d.Close()
}

func TestReadFDPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	fd := int(r.Fd())

	buf := make([]byte, 8)
	if _, err := readFD(fd, buf, 10); !errors.Is(err, errNoData) {
		t.Fatalf("empty pipe err = %v, want errNoData", err)
	}
	w.Write([]byte{1, 2, 3})
	n, err := readFD(fd, buf, 1000)
	if err != nil || n != 3 {
		t.Fatalf("read = %d, %v; want 3, nil", n, err)
	}
	w.Close()
	if _, err := readFD(fd, buf, 1000); !errors.Is(err, io.EOF) {
		t.Fatalf("after close err = %v, want EOF", err)
	}
}
