// Package link serves the controller's filter and IO properties to remote
// control clients over a websocket.
package link

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cbegin/eqlink-go/internal/device"
	"github.com/cbegin/eqlink-go/internal/eq"
)

// Characteristic identifiers of the exposed properties.
var (
	PeqUUID    = uuid.MustParse("8c1a6d3e-2a4f-4e6b-9f51-0d3c7b2e1001")
	AuxUUID    = uuid.MustParse("8c1a6d3e-2a4f-4e6b-9f51-0d3c7b2e1002")
	IOCapsUUID = uuid.MustParse("8c1a6d3e-2a4f-4e6b-9f51-0d3c7b2e1003")
	IOConfUUID = uuid.MustParse("8c1a6d3e-2a4f-4e6b-9f51-0d3c7b2e1004")
)

// GroupUUID returns the characteristic carrying group.
func GroupUUID(group eq.Group) (uuid.UUID, bool) {
	switch group {
	case eq.GroupEqualizer:
		return PeqUUID, true
	case eq.GroupAuxiliary:
		return AuxUUID, true
	default:
		return uuid.Nil, false
	}
}

func groupOf(id uuid.UUID) (eq.Group, bool) {
	switch id {
	case PeqUUID:
		return eq.GroupEqualizer, true
	case AuxUUID:
		return eq.GroupAuxiliary, true
	default:
		return 0, false
	}
}

const (
	OpRead   = "read"
	OpWrite  = "write"
	OpNotify = "notify"
	OpError  = "error"
)

// Envelope is one msgpack message on the websocket.
type Envelope struct {
	Op    string `msgpack:"op"`
	UUID  string `msgpack:"uuid"`
	Value []byte `msgpack:"value,omitempty"`
	Error string `msgpack:"error,omitempty"`
}

// IdentitySize is the wire size of a device.Identity.
const IdentitySize = 3

// AppendIdentity appends the wire form {type, output, instance} of id.
func AppendIdentity(b []byte, id device.Identity) []byte {
	out := byte(0)
	if id.Output {
		out = 1
	}
	return append(b, byte(id.Type), out, byte(min(max(id.Instance, 0), 255)))
}

// ParseIdentity decodes one wire identity. Unknown interface types map to
// device.InterfaceInvalid.
func ParseIdentity(b []byte) (device.Identity, error) {
	if len(b) != IdentitySize {
		return device.Identity{}, fmt.Errorf("identity needs %d bytes, got %d", IdentitySize, len(b))
	}
	t := device.InterfaceType(b[0])
	switch t {
	case device.InterfaceBluetooth, device.InterfaceDefault, device.InterfaceSpdif:
	default:
		t = device.InterfaceInvalid
	}
	return device.Identity{Type: t, Output: b[1] != 0, Instance: int(b[2])}, nil
}

func encodeIdentities(ids []device.Identity) []byte {
	b := make([]byte, 0, len(ids)*IdentitySize)
	for _, id := range ids {
		b = AppendIdentity(b, id)
	}
	return b
}
