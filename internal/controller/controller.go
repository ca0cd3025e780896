// Package controller owns the active pipeline instance. It keeps the
// instance's topology in sync with the auxiliary filter group and forwards
// filters, volume, output device and transport to it.
package controller

import (
	"log/slog"

	"github.com/cbegin/eqlink-go/internal/device"
	"github.com/cbegin/eqlink-go/internal/eq"
	"github.com/cbegin/eqlink-go/internal/pipeline"
)

// FilterGroupUpdated is emitted after a group accepted a new sequence.
// Filters is a copy of the accepted sequence.
type FilterGroupUpdated struct {
	Group   eq.Group
	Filters []eq.Filter
}

// Handler receives controller events on the controller goroutine. It must
// not wait on the Loop that delivered the event.
type Handler func(FilterGroupUpdated)

// IOConfig is the last explicitly selected input and output.
type IOConfig struct {
	Input  device.Identity
	Output device.Identity
}

type Option func(*Controller)

func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithHandler registers h for every FilterGroupUpdated event.
func WithHandler(h Handler) Option {
	return func(c *Controller) {
		c.handlers = append(c.handlers, h)
	}
}

// WithRelease sets the function that releases a transport descriptor once
// the pipeline has stopped reading it. Defaults to pipeline.ReleaseFD.
func WithRelease(release func(fd int) error) Option {
	return func(c *Controller) {
		c.release = release
	}
}

// Controller is the pipeline selector and controller. Its methods must be
// called from a single goroutine; use a Loop to hand calls over from others.
type Controller struct {
	factory  pipeline.Factory
	registry *device.Registry
	release  func(fd int) error
	handlers []Handler
	log      *slog.Logger

	store     *Store
	engine    pipeline.Engine
	transport pipeline.Transport
	volume    float64
	hasVolume bool
	handle    string
	hasOutput bool
	io        IOConfig
}

// New constructs the controller with a Normal pipeline instance.
func New(factory pipeline.Factory, registry *device.Registry, opts ...Option) *Controller {
	c := &Controller{
		factory:   factory,
		registry:  registry,
		release:   pipeline.ReleaseFD,
		log:       slog.Default(),
		store:     NewStore(),
		transport: pipeline.Detached,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.engine = c.build(pipeline.TopologyNormal)
	return c
}

// Topology returns the topology of the active pipeline instance.
func (c *Controller) Topology() pipeline.Topology { return c.engine.Topology() }

func (c *Controller) Filters(group eq.Group) []eq.Filter {
	return c.store.Filters(group)
}

func (c *Controller) SetFilters(group eq.Group, filters []eq.Filter) {
	for _, f := range filters {
		c.log.Debug("filter", "group", group.String(), "type", f.Type.String(), "f", f.F, "g", f.G, "q", f.Q)
	}
	c.store.SetFilters(group, filters)

	switch group {
	case eq.GroupEqualizer:
		c.engine.SetEqualizer(c.store.Filters(eq.GroupEqualizer))
	case eq.GroupAuxiliary:
		c.selectTopology()
	default:
		c.log.Warn("filters for unknown group stored only", "group", group.String())
	}

	ev := FilterGroupUpdated{Group: group, Filters: c.store.Filters(group)}
	for _, h := range c.handlers {
		h(ev)
	}
}

// selectTopology swaps the pipeline instance when the auxiliary group asks
// for a different topology, then applies crossover and loudness.
func (c *Controller) selectTopology() {
	aux := c.store.Filters(eq.GroupAuxiliary)
	cross, hasCross := eq.Find(aux, eq.TypeCrossover)
	target := pipeline.TopologyNormal
	if hasCross {
		target = pipeline.TopologyCrossover
	}

	if target == c.engine.Topology() {
		c.engine.SetCrossover(cross)
		c.engine.SetLoudness(eq.LoudnessLevel(aux))
		return
	}
	c.swap(target, cross, eq.LoudnessLevel(aux))
}

func (c *Controller) swap(target pipeline.Topology, cross eq.Filter, loudness uint8) {
	c.log.Info("switching pipeline", "from", c.engine.Topology().String(), "to", target.String())

	c.engine.SetTransport(pipeline.Detached)
	c.engine.Close()
	c.engine = c.build(target)

	c.engine.SetCrossover(cross)
	c.engine.SetLoudness(loudness)
	c.engine.SetEqualizer(c.store.Filters(eq.GroupEqualizer))
	c.engine.SetTransport(c.transport)
	if c.hasVolume {
		c.engine.SetVolume(c.volume)
	}
	if c.hasOutput {
		c.engine.SetOutputDevice(c.handle)
	}
}

// build constructs an instance of t. A failed crossover instance falls back
// to Normal; when that fails too a no-op instance is held.
func (c *Controller) build(t pipeline.Topology) pipeline.Engine {
	e, err := c.factory(t)
	if err == nil {
		return e
	}
	c.log.Error("pipeline construction failed", "topology", t.String(), "error", err)
	if t != pipeline.TopologyNormal {
		if e, err = c.factory(pipeline.TopologyNormal); err == nil {
			c.log.Warn("running normal pipeline instead", "requested", t.String())
			return e
		}
		c.log.Error("pipeline construction failed", "topology", pipeline.TopologyNormal.String(), "error", err)
	}
	return pipeline.Nop{Topo: t}
}

// IOCapabilities re-enumerates the output devices.
func (c *Controller) IOCapabilities() []device.Identity {
	if c.registry == nil {
		return []device.Identity{device.BluetoothInput}
	}
	return c.registry.Capabilities()
}

func (c *Controller) IOConfiguration() IOConfig { return c.io }

func (c *Controller) SetInput(id device.Identity) {
	c.io.Input = id
}

// SetOutput records id and forwards its native handle, or "" when id is not
// in the latest capabilities snapshot.
func (c *Controller) SetOutput(id device.Identity) {
	c.io.Output = id
	handle := ""
	if c.registry != nil {
		handle = c.registry.Resolve(id)
	}
	if handle == "" {
		c.log.Warn("output not resolvable", "identity", id.String())
	}
	c.handle = handle
	c.hasOutput = true
	c.engine.SetOutputDevice(handle)
}

// SetTransport attaches t, or detaches when t is not a usable stream. The
// controller takes custody of every non-negative descriptor it is handed:
// a replaced one is released after the pipeline stopped reading it, an
// unusable one right away.
func (c *Controller) SetTransport(t pipeline.Transport) {
	old := c.transport
	if !t.Attached() {
		if t.FD >= 0 && !(old.Attached() && old.FD == t.FD) {
			c.log.Warn("unusable transport", "fd", t.FD, "block", t.BlockSize, "rate", t.Rate)
			c.releaseFD(t.FD)
		}
		t = pipeline.Detached
	}
	c.transport = t
	c.engine.SetTransport(t)
	if old.Attached() && old.FD != t.FD {
		c.releaseFD(old.FD)
	}
}

func (c *Controller) Transport() pipeline.Transport { return c.transport }

func (c *Controller) SetVolume(level float64) {
	c.volume = level
	c.hasVolume = true
	c.engine.SetVolume(level)
}

// Close detaches and destroys the active instance and releases the
// descriptor in custody.
func (c *Controller) Close() {
	c.engine.SetTransport(pipeline.Detached)
	c.engine.Close()
	c.engine = pipeline.Nop{Topo: c.engine.Topology()}
	if c.transport.Attached() {
		c.releaseFD(c.transport.FD)
	}
	c.transport = pipeline.Detached
}

func (c *Controller) releaseFD(fd int) {
	if err := c.release(fd); err != nil {
		c.log.Warn("release transport failed", "fd", fd, "error", err)
	}
}
