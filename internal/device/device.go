// Package device maps enumerated audio output devices to logical identities
// that the control link can address.
package device

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
)

// InterfaceType classifies an input or output interface.
type InterfaceType uint8

const (
	InterfaceInvalid InterfaceType = iota
	InterfaceBluetooth
	InterfaceDefault
	InterfaceSpdif
)

func (t InterfaceType) String() string {
	switch t {
	case InterfaceBluetooth:
		return "bluetooth"
	case InterfaceDefault:
		return "default"
	case InterfaceSpdif:
		return "spdif"
	default:
		return "invalid"
	}
}

// Identity is the logical key of an input or output. It is derived from the
// enumeration order and only stable relative to other devices of the same class.
type Identity struct {
	Type     InterfaceType
	Output   bool
	Instance int
}

func (id Identity) String() string {
	dir := "in"
	if id.Output {
		dir = "out"
	}
	return fmt.Sprintf("%s/%s/%d", id.Type, dir, id.Instance)
}

func (id Identity) compare(o Identity) int {
	if c := cmp.Compare(id.Type, o.Type); c != 0 {
		return c
	}
	if id.Output != o.Output {
		if !id.Output {
			return -1
		}
		return 1
	}
	return cmp.Compare(id.Instance, o.Instance)
}

// BluetoothInput is the synthetic capability for the wireless audio input.
var BluetoothInput = Identity{Type: InterfaceBluetooth, Output: false, Instance: 1}

// Class is the category an enumerator assigns to a device.
type Class uint8

const (
	ClassOther Class = iota
	ClassDefault
	ClassDigital
)

// Device is one enumerated output with its native handle.
type Device struct {
	Name  string
	Class Class
}

// Enumerator lists the currently available output devices.
type Enumerator interface {
	OutputDevices() ([]Device, error)
}

// Registry rebuilds the identity to handle map on every Capabilities call.
// It is not safe for concurrent use; the controller owns it.
type Registry struct {
	enum    Enumerator
	log     *slog.Logger
	handles map[Identity]string
}

func NewRegistry(enum Enumerator, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{enum: enum, log: log, handles: make(map[Identity]string)}
}

// Capabilities re-enumerates devices and returns the wireless input followed
// by one identity per mapped output, ordered by identity.
func (r *Registry) Capabilities() []Identity {
	clear(r.handles)

	var devices []Device
	if r.enum != nil {
		var err error
		devices, err = r.enum.OutputDevices()
		if err != nil {
			r.log.Warn("device enumeration incomplete", "error", err, "devices", len(devices))
		}
	}

	spdif := 0
	for _, d := range devices {
		var id Identity
		switch d.Class {
		case ClassDefault:
			id = Identity{Type: InterfaceDefault, Output: true, Instance: 1}
		case ClassDigital:
			spdif++
			id = Identity{Type: InterfaceSpdif, Output: true, Instance: spdif}
		default:
			continue
		}
		if _, ok := r.handles[id]; ok {
			continue
		}
		r.handles[id] = d.Name
	}

	ids := make([]Identity, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, Identity.compare)
	return append([]Identity{BluetoothInput}, ids...)
}

// Resolve returns the native handle recorded for id by the latest
// Capabilities call, or "" when id is unknown.
func (r *Registry) Resolve(id Identity) string {
	return r.handles[id]
}
