// Package eqlink wires the equalizer controller, its pipeline engine and the
// network control link into a daemon.
package eqlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/sys/unix"

	"github.com/cbegin/eqlink-go/internal/audio"
	"github.com/cbegin/eqlink-go/internal/config"
	"github.com/cbegin/eqlink-go/internal/controller"
	"github.com/cbegin/eqlink-go/internal/device"
	"github.com/cbegin/eqlink-go/internal/link"
	"github.com/cbegin/eqlink-go/internal/pipeline"
)

type DaemonOption func(*daemonConfig)

type daemonConfig struct {
	log        *slog.Logger
	enumerator device.Enumerator
	open       audio.Opener
	factory    pipeline.Factory
	release    func(fd int) error
	listener   net.Listener
}

func WithLogger(log *slog.Logger) DaemonOption {
	return func(cfg *daemonConfig) {
		cfg.log = log
	}
}

// WithEnumerator replaces the enumerator derived from the configuration.
func WithEnumerator(e device.Enumerator) DaemonOption {
	return func(cfg *daemonConfig) {
		cfg.enumerator = e
	}
}

// WithOpener replaces the output backend derived from the configuration.
func WithOpener(open audio.Opener) DaemonOption {
	return func(cfg *daemonConfig) {
		cfg.open = open
	}
}

// WithFactory replaces the DSP pipeline engine.
func WithFactory(f pipeline.Factory) DaemonOption {
	return func(cfg *daemonConfig) {
		cfg.factory = f
	}
}

// WithRelease sets how transport descriptors are released.
func WithRelease(release func(fd int) error) DaemonOption {
	return func(cfg *daemonConfig) {
		cfg.release = release
	}
}

// WithListener serves the control link on ln instead of link.listen.
func WithListener(ln net.Listener) DaemonOption {
	return func(cfg *daemonConfig) {
		cfg.listener = ln
	}
}

// Daemon owns the controller loop and the control link. All state lives in
// the Daemon; several may run in one process.
type Daemon struct {
	cfg      config.Config
	log      *slog.Logger
	loop     *controller.Loop
	link     *link.Server
	listener net.Listener
}

func NewDaemon(cfg config.Config, opts ...DaemonOption) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dc := daemonConfig{log: slog.Default(), release: pipeline.ReleaseFD}
	for _, opt := range opts {
		opt(&dc)
	}
	if dc.enumerator == nil {
		dc.enumerator = NewEnumerator(cfg.Devices)
	}
	if dc.open == nil {
		dc.open = NewOpener(cfg.Audio.Backend)
	}
	if dc.factory == nil {
		dc.factory = pipeline.NewFactory(pipeline.Options{
			SampleRate: cfg.Audio.SampleRate,
			Processor:  ProcessorConfig(cfg.Audio),
			Open:       dc.open,
			Logger:     dc.log,
		})
	}

	var srv *link.Server
	ctl := controller.New(dc.factory, device.NewRegistry(dc.enumerator, dc.log),
		controller.WithLogger(dc.log),
		controller.WithRelease(dc.release),
		controller.WithHandler(func(ev controller.FilterGroupUpdated) { srv.Notify(ev) }),
	)
	loop := controller.NewLoop(ctl, controller.DefaultQueueDepth)
	srv = link.NewServer(loop, dc.log)

	return &Daemon{
		cfg:      cfg,
		log:      dc.log,
		loop:     loop,
		link:     srv,
		listener: dc.listener,
	}, nil
}

// NewEnumerator returns the static device list when configured, the ALSA
// procfs enumerator otherwise.
func NewEnumerator(cfg config.Devices) device.Enumerator {
	if len(cfg.Static) == 0 {
		return device.ALSAEnumerator{Path: cfg.ProcPCM}
	}
	devices := make(device.StaticEnumerator, 0, len(cfg.Static))
	for _, d := range cfg.Static {
		// Validate rejected unknown types; anything left maps to other.
		class, _ := device.ParseClass(d.Type)
		devices = append(devices, device.Device{Name: d.Name, Class: class})
	}
	return devices
}

func NewOpener(backend string) audio.Opener {
	if backend == config.BackendDiscard {
		return audio.OpenDiscard
	}
	return audio.OpenPlayer
}

func ProcessorConfig(cfg config.Audio) pipeline.ProcessorConfig {
	return pipeline.ProcessorConfig{
		CrossoverOrder:   cfg.CrossoverOrder,
		LoudnessBassHz:   cfg.Loudness.BassHz,
		LoudnessTrebleHz: cfg.Loudness.TrebleHz,
	}
}

// Run serves until ctx is done or the control link fails. A configured
// transport path is attached once the loop runs.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopErr := make(chan error, 1)
	go func() { loopErr <- d.loop.Run(ctx) }()

	if d.cfg.Transport.Path != "" {
		t, err := OpenTransport(d.cfg.Transport.Path, d.cfg.Transport.BlockSize, d.cfg.Transport.Rate)
		if err != nil {
			d.log.Error("transport unavailable", "path", d.cfg.Transport.Path, "error", err)
		} else if err := d.SetTransport(ctx, t); err != nil {
			unix.Close(t.FD)
		}
	}

	var err error
	if d.listener != nil {
		err = d.link.Serve(ctx, d.listener, d.cfg.Link.Path)
	} else {
		err = d.link.ListenAndServe(ctx, d.cfg.Link.Listen, d.cfg.Link.Path)
	}
	cancel()
	if lerr := <-loopErr; err == nil && !errors.Is(lerr, context.Canceled) {
		err = lerr
	}
	return err
}

// SetTransport hands a streaming descriptor over to the controller, which
// releases it once detached.
func (d *Daemon) SetTransport(ctx context.Context, t pipeline.Transport) error {
	return d.loop.Post(ctx, controller.SetTransport{Transport: t})
}

// ClearTransport detaches the current stream.
func (d *Daemon) ClearTransport(ctx context.Context) error {
	return d.loop.Post(ctx, controller.ClearTransport{})
}

// Loop exposes the controller queue.
func (d *Daemon) Loop() *controller.Loop { return d.loop }

// OpenTransport opens path, typically a FIFO written by the transport layer,
// for non-blocking reads.
func OpenTransport(path string, blockSize, rate int) (pipeline.Transport, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return pipeline.Detached, fmt.Errorf("open transport %s: %w", path, err)
	}
	return pipeline.Transport{FD: fd, BlockSize: blockSize, Rate: rate}, nil
}
