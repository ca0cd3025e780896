// Package pipeline defines the contract of the audio processing pipeline the
// controller drives, and a DSP implementation of it.
package pipeline

import (
	"fmt"

	"github.com/cbegin/eqlink-go/internal/eq"
)

// Topology is the shape of the processing chain.
type Topology uint8

const (
	TopologyNormal Topology = iota
	TopologyCrossover
)

func (t Topology) String() string {
	switch t {
	case TopologyNormal:
		return "normal"
	case TopologyCrossover:
		return "crossover"
	default:
		return fmt.Sprintf("topology(%d)", uint8(t))
	}
}

// Transport describes the streaming descriptor handed over by the transport layer.
type Transport struct {
	FD        int
	BlockSize int
	Rate      int
}

// Detached is the "no transport" sentinel.
var Detached = Transport{FD: -1}

// Attached reports whether t refers to a usable stream.
func (t Transport) Attached() bool {
	return t.FD >= 0 && t.BlockSize > 0 && t.Rate > 0
}

func (t Transport) String() string {
	if !t.Attached() {
		return "detached"
	}
	return fmt.Sprintf("fd=%d block=%d rate=%d", t.FD, t.BlockSize, t.Rate)
}

// Engine is one live pipeline instance. Setters are called from a single
// goroutine and must be idempotent under repeated identical calls.
type Engine interface {
	Topology() Topology
	SetEqualizer(filters []eq.Filter)
	// SetCrossover takes the crossover pseudo-filter, or the zero Filter to disable it.
	SetCrossover(f eq.Filter)
	SetLoudness(level uint8)
	SetVolume(level float64)
	SetOutputDevice(handle string)
	SetTransport(t Transport)
	// Close tears the instance down synchronously. The transport descriptor
	// is never closed by the engine.
	Close()
}

// Factory constructs an engine of the given topology.
type Factory func(Topology) (Engine, error)

// Nop is an engine that ignores every call.
type Nop struct {
	Topo Topology
}

func (n Nop) Topology() Topology { return n.Topo }
func (Nop) SetEqualizer([]eq.Filter) {}
func (Nop) SetCrossover(eq.Filter) {}
func (Nop) SetLoudness(uint8) {}
func (Nop) SetVolume(float64) {}
func (Nop) SetOutputDevice(string) {}
func (Nop) SetTransport(Transport) {}
func (Nop) Close() {}
