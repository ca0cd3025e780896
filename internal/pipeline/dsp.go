package pipeline

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/cbegin/eqlink-go/internal/audio"
	"github.com/cbegin/eqlink-go/internal/eq"
)

const pollTimeoutMs = 100

// Options configures DSP engines.
type Options struct {
	// SampleRate is the sink rate. Transport audio is resampled to it.
	SampleRate int
	Processor  ProcessorConfig
	// Open opens the sink for a device handle. Defaults to audio.OpenDiscard.
	Open   audio.Opener
	Read   ReadFunc
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.SampleRate <= 0 {
		o.SampleRate = 48000
	}
	if o.Open == nil {
		o.Open = audio.OpenDiscard
	}
	if o.Read == nil {
		o.Read = readFD
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// NewFactory returns a Factory producing DSP engines.
func NewFactory(opts Options) Factory {
	return func(t Topology) (Engine, error) {
		return NewDSP(t, opts)
	}
}

// DSP streams 16-bit little-endian stereo PCM from the transport descriptor
// through a Processor into the selected output sink.
type DSP struct {
	opts Options
	log  *slog.Logger

	mu        sync.Mutex
	proc      *Processor
	device    string
	transport Transport
	sink      audio.Sink
	resampler *audio.Resampler
	closed    bool

	stop chan struct{}
	done chan struct{}
}

func NewDSP(t Topology, opts Options) (*DSP, error) {
	if t != TopologyNormal && t != TopologyCrossover {
		return nil, errors.New("pipeline: unknown topology")
	}
	opts = opts.withDefaults()
	log := opts.Logger.With("topology", t.String())
	return &DSP{
		opts:      opts,
		log:       log,
		proc:      NewProcessor(t, opts.SampleRate, opts.Processor, log),
		transport: Detached,
	}, nil
}

func (d *DSP) Topology() Topology { return d.proc.topology }

func (d *DSP) SetEqualizer(filters []eq.Filter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.proc.SetEqualizer(filters)
}

func (d *DSP) SetCrossover(f eq.Filter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.proc.SetCrossover(f)
}

func (d *DSP) SetLoudness(level uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.proc.SetLoudness(level)
}

func (d *DSP) SetVolume(level float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.proc.SetVolume(level)
}

func (d *DSP) SetOutputDevice(handle string) {
	d.mu.Lock()
	if handle == d.device {
		d.mu.Unlock()
		return
	}
	d.device = handle
	t := d.transport
	d.mu.Unlock()

	if t.Attached() {
		d.stopStream()
		d.startStream(t)
	}
}

func (d *DSP) SetTransport(t Transport) {
	if !t.Attached() {
		t = Detached
	}
	d.mu.Lock()
	if t == d.transport || d.closed {
		d.mu.Unlock()
		return
	}
	d.transport = t
	d.mu.Unlock()

	d.stopStream()
	if t.Attached() {
		d.startStream(t)
	}
}

// Transport returns the currently attached transport.
func (d *DSP) Transport() Transport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transport
}

func (d *DSP) Close() {
	d.mu.Lock()
	d.closed = true
	d.transport = Detached
	d.mu.Unlock()
	d.stopStream()
}

func (d *DSP) startStream(t Transport) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sink, err := d.openSink()
	if err != nil {
		d.log.Error("open output failed, discarding audio", "device", d.device, "error", err)
		sink = &audio.Discard{Rate: d.opts.SampleRate, Chans: 2}
	}
	rs, err := audio.NewResampler(t.Rate, sink.SampleRate(), sink.Channels())
	if err != nil {
		d.log.Error("resampler unavailable, discarding audio", "error", err)
		sink.Close()
		return
	}
	d.proc.SetSampleRate(t.Rate)
	d.sink = sink
	d.resampler = rs
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.log.Info("stream started", "transport", t.String(), "device", d.device)
	go d.stream(t, sink, d.stop, d.done)
}

func (d *DSP) openSink() (audio.Sink, error) {
	if d.device == "" {
		return &audio.Discard{Rate: d.opts.SampleRate, Chans: 2}, nil
	}
	return d.opts.Open(d.device, d.opts.SampleRate)
}

// stopStream waits for the reader goroutine to exit and releases the sink.
func (d *DSP) stopStream() {
	d.mu.Lock()
	stop, done, sink := d.stop, d.done, d.sink
	d.stop, d.done, d.sink, d.resampler = nil, nil, nil, nil
	d.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	// A reader blocked on a full sink is released by closing the sink.
	if sink != nil {
		sink.Close()
	}
	<-done
	d.log.Info("stream stopped")
}

func (d *DSP) stream(t Transport, sink audio.Sink, stop, done chan struct{}) {
	defer close(done)
	buf := make([]byte, t.BlockSize)
	var pending []byte
	for {
		select {
		case <-stop:
			return
		default:
		}
		n, err := d.opts.Read(t.FD, buf, pollTimeoutMs)
		if errors.Is(err, errNoData) {
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.log.Info("transport closed by peer", "fd", t.FD)
			} else {
				d.log.Warn("transport read failed", "fd", t.FD, "error", err)
			}
			return
		}
		pending = append(pending, buf[:n]...)
		whole := len(pending) / 4 * 4
		if whole == 0 {
			continue
		}
		out, err := d.processBlock(pending[:whole], sink)
		pending = append(pending[:0], pending[whole:]...)
		if errors.Is(err, audio.ErrClosed) {
			return
		}
		if err != nil {
			d.log.Warn("processing failed", "error", err)
			continue
		}
		if err := sink.Write(out); err != nil {
			if errors.Is(err, audio.ErrClosed) {
				return
			}
			d.log.Warn("output write failed", "error", err)
		}
	}
}

func (d *DSP) processBlock(pcm []byte, sink audio.Sink) ([]float32, error) {
	in := make([]float64, len(pcm)/2)
	for i := range in {
		in[i] = float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
	}

	d.mu.Lock()
	if d.sink != sink {
		d.mu.Unlock()
		return nil, audio.ErrClosed
	}
	out := d.proc.Process(make([]float64, 0, len(in)*2), in)
	out = Fold(out, d.proc.Channels(), sink.Channels())
	out, err := d.resampler.Process(out)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	f := make([]float32, len(out))
	for i, s := range out {
		f[i] = float32(s)
	}
	return f, nil
}
