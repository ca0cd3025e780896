package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/cbegin/eqlink-go/internal/device"
	"github.com/cbegin/eqlink-go/internal/eq"
	"github.com/cbegin/eqlink-go/internal/pipeline"
)

// ErrStopped is returned when posting to a Loop that is no longer running.
var ErrStopped = errors.New("controller: loop stopped")

// DefaultQueueDepth is the number of messages a Loop buffers.
const DefaultQueueDepth = 64

// Message is a call handed over to the controller goroutine.
type Message interface {
	apply(c *Controller)
}

type SetFilters struct {
	Group   eq.Group
	Filters []eq.Filter
}

type SetInput struct{ Identity device.Identity }

type SetOutput struct{ Identity device.Identity }

type SetTransport struct{ Transport pipeline.Transport }

// ClearTransport is the transport layer's "cleared" notification.
type ClearTransport struct{}

type SetVolume struct{ Level float64 }

func (m SetFilters) apply(c *Controller)   { c.SetFilters(m.Group, m.Filters) }
func (m SetInput) apply(c *Controller)     { c.SetInput(m.Identity) }
func (m SetOutput) apply(c *Controller)    { c.SetOutput(m.Identity) }
func (m SetTransport) apply(c *Controller) { c.SetTransport(m.Transport) }
func (ClearTransport) apply(c *Controller) { c.SetTransport(pipeline.Detached) }
func (m SetVolume) apply(c *Controller)    { c.SetVolume(m.Level) }

type call struct {
	fn   func(*Controller)
	done chan struct{}
}

func (m call) apply(c *Controller) {
	m.fn(c)
	close(m.done)
}

// Loop runs a Controller on its own goroutine and applies posted messages
// strictly in the order they were sent.
type Loop struct {
	c        *Controller
	queue    chan Message
	stopping chan struct{}
	done     chan struct{}

	// mu serializes senders against shutdown so that every accepted
	// message is applied before the controller closes.
	mu      sync.Mutex
	stopped bool
}

// NewLoop creates a loop for c. A depth <= 0 uses DefaultQueueDepth.
func NewLoop(c *Controller, depth int) *Loop {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &Loop{
		c:        c,
		queue:    make(chan Message, depth),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run applies messages until ctx is done. It then refuses new messages,
// applies the ones already accepted and closes the controller, which
// releases any transport in its custody. It must be called once.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		case m := <-l.queue:
			m.apply(l.c)
		}
	}
}

func (l *Loop) shutdown() {
	close(l.stopping)
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	for {
		select {
		case m := <-l.queue:
			m.apply(l.c)
		default:
			l.c.Close()
			return
		}
	}
}

// Done is closed once Run returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Post enqueues m. It blocks while the queue is full. A nil error means m
// will be applied, even if the loop is shutting down; otherwise m was not
// accepted and the caller keeps ownership of anything it carries.
func (l *Loop) Post(ctx context.Context, m Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return ErrStopped
	}
	select {
	case l.queue <- m:
		return nil
	case <-l.stopping:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the controller goroutine and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func(*Controller)) error {
	m := call{fn: fn, done: make(chan struct{})}
	if err := l.Post(ctx, m); err != nil {
		return err
	}
	// An accepted call always runs, during shutdown too.
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) Filters(ctx context.Context, group eq.Group) ([]eq.Filter, error) {
	var out []eq.Filter
	if err := l.Do(ctx, func(c *Controller) { out = c.Filters(group) }); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Loop) IOCapabilities(ctx context.Context) ([]device.Identity, error) {
	var out []device.Identity
	if err := l.Do(ctx, func(c *Controller) { out = c.IOCapabilities() }); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Loop) IOConfiguration(ctx context.Context) (IOConfig, error) {
	var out IOConfig
	if err := l.Do(ctx, func(c *Controller) { out = c.IOConfiguration() }); err != nil {
		return IOConfig{}, err
	}
	return out, nil
}
