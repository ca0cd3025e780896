// Package audio holds the output sinks the equalizer pipeline writes to.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("audio: sink closed")

// Sink consumes interleaved float32 frames.
type Sink interface {
	SampleRate() int
	Channels() int
	Write(samples []float32) error
	Close() error
}

// Opener opens a sink for a native device handle.
type Opener func(device string, sampleRate int) (Sink, error)

// Queue is a bounded FIFO of interleaved stereo samples. Write blocks while
// the queue is full; Read pads with silence on underrun so the driver never stalls.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []float32
	limit  int
	closed bool
}

func NewQueue(limit int) *Queue {
	q := &Queue{limit: limit}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *Queue) Write(samples []float32) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(samples) > 0 {
		for !q.closed && len(q.buf) >= q.limit {
			q.cond.Wait()
		}
		if q.closed {
			return ErrClosed
		}
		n := min(q.limit-len(q.buf), len(samples))
		q.buf = append(q.buf, samples[:n]...)
		samples = samples[n:]
	}
	return nil
}

// Read implements io.Reader producing 32-bit float little-endian stereo.
func (q *Queue) Read(p []byte) (int, error) {
	n := len(p) / 8 * 2
	if n == 0 {
		return 0, nil
	}
	q.mu.Lock()
	avail := min(n, len(q.buf))
	for i := 0; i < avail; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(q.buf[i]))
	}
	q.buf = append(q.buf[:0], q.buf[avail:]...)
	q.cond.Broadcast()
	q.mu.Unlock()
	for i := avail; i < n; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], 0)
	}
	return n * 4, nil
}

// Len returns the number of queued samples.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

func (q *Queue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.buf = nil
	q.cond.Broadcast()
	q.mu.Unlock()
	return nil
}

// Player plays stereo frames through the ebiten audio context.
type Player struct {
	device     string
	sampleRate int
	player     *ebitaudio.Player
	queue      *Queue
}

var (
	audioContextMu  sync.Mutex
	audioContext    *ebitaudio.Context
	audioSampleRate int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextMu.Lock()
	defer audioContextMu.Unlock()
	if audioContext == nil {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	}
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// OpenPlayer starts playback on the system output. The ebiten backend always
// renders through the host's default output, so device is only recorded.
func OpenPlayer(device string, sampleRate int) (Sink, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	q := NewQueue(sampleRate / 5 * 2)
	pl, err := ctx.NewPlayerF32(q)
	if err != nil {
		return nil, err
	}
	pl.Play()
	return &Player{device: device, sampleRate: sampleRate, player: pl, queue: q}, nil
}

func (p *Player) SampleRate() int { return p.sampleRate }
func (p *Player) Channels() int   { return 2 }
func (p *Player) Device() string  { return p.device }

func (p *Player) Write(samples []float32) error {
	return p.queue.Write(samples)
}

func (p *Player) Close() error {
	p.player.Pause()
	err := p.queue.Close()
	if cerr := p.player.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Discard drops every frame. It stands in when no output device is selected.
type Discard struct {
	Rate    int
	Chans   int
	mu      sync.Mutex
	written int
}

func (d *Discard) SampleRate() int { return d.Rate }
func (d *Discard) Channels() int   { return d.Chans }

func (d *Discard) Write(samples []float32) error {
	d.mu.Lock()
	d.written += len(samples)
	d.mu.Unlock()
	return nil
}

// Written returns the number of samples accepted so far.
func (d *Discard) Written() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written
}

func (d *Discard) Close() error { return nil }

// OpenDiscard is an Opener producing stereo Discard sinks.
func OpenDiscard(device string, sampleRate int) (Sink, error) {
	return &Discard{Rate: sampleRate, Chans: 2}, nil
}
