package eqlink

import (
	"context"
	"encoding/binary"
	"net"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cbegin/eqlink-go/internal/audio"
	"github.com/cbegin/eqlink-go/internal/codec"
	"github.com/cbegin/eqlink-go/internal/config"
	"github.com/cbegin/eqlink-go/internal/device"
	"github.com/cbegin/eqlink-go/internal/eq"
	"github.com/cbegin/eqlink-go/internal/link"
	"github.com/cbegin/eqlink-go/internal/pipeline"
)

type captureOpener struct {
	mu    sync.Mutex
	sinks map[string]*audio.Discard
}

func (c *captureOpener) open(device string, rate int) (audio.Sink, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := &audio.Discard{Rate: rate, Chans: 2}
	c.sinks[device] = d
	return d, nil
}

func (c *captureOpener) written(device string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d := c.sinks[device]; d != nil {
		return d.Written()
	}
	return 0
}

type wsClient struct {
	t  *testing.T
	ws *websocket.Conn
}

func (c wsClient) send(op string, id string, value []byte) {
	c.t.Helper()
	data, err := msgpack.Marshal(link.Envelope{Op: op, UUID: id, Value: value})
	if err != nil {
		c.t.Fatal(err)
	}
	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

// next returns the next envelope whose op is one of ops.
func (c wsClient) next(ops ...string) link.Envelope {
	c.t.Helper()
	for {
		c.ws.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.t.Fatalf("read: %v", err)
		}
		var env link.Envelope
		if err := msgpack.Unmarshal(data, &env); err != nil {
			c.t.Fatalf("unmarshal: %v", err)
		}
		if slices.Contains(ops, env.Op) {
			return env
		}
	}
}

func TestDaemonEndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Backend = config.BackendDiscard
	cfg.Devices.Static = []config.StaticDevice{
		{Name: "default", Type: "default"},
		{Name: "hw:1,0", Type: "digital"},
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	opener := &captureOpener{sinks: make(map[string]*audio.Discard)}
	var relMu sync.Mutex
	var released []int
	d, err := NewDaemon(cfg,
		WithListener(ln),
		WithOpener(opener.open),
		WithRelease(func(fd int) error {
			relMu.Lock()
			released = append(released, fd)
			relMu.Unlock()
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("NewDaemon() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()

	url := "ws://" + ln.Addr().String() + cfg.Link.Path
	var ws *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		ws, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	c := wsClient{t: t, ws: ws}

	c.send(link.OpRead, link.IOCapsUUID.String(), nil)
	caps := c.next(link.OpRead).Value
	if want := []byte{1, 0, 1, 2, 1, 1, 3, 1, 1}; !slices.Equal(caps, want) {
		t.Fatalf("capabilities = %v, want %v", caps, want)
	}
	c.send(link.OpWrite, link.IOConfUUID.String(), []byte{1, 0, 1, 3, 1, 1})
	c.next(link.OpWrite)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()
	fd := int(r.Fd())
	if err := d.SetTransport(ctx, pipeline.Transport{FD: fd, BlockSize: 1024, Rate: 48000}); err != nil {
		t.Fatalf("SetTransport() error: %v", err)
	}

	aux := codec.EncodeFilters([]eq.Filter{{Type: eq.TypeCrossover, F: 80}, {Type: eq.TypeLoudness, G: 4}})
	c.send(link.OpWrite, link.AuxUUID.String(), aux)
	notify := c.next(link.OpNotify)
	if notify.UUID != link.AuxUUID.String() || !slices.Equal(notify.Value, aux) {
		t.Fatalf("notify = %+v", notify)
	}

	pcm := make([]byte, 4*2048)
	for i := 0; i < len(pcm)/2; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(i)))
	}
	if _, err := w.Write(pcm); err != nil {
		t.Fatal(err)
	}
	deadline = time.Now().Add(3 * time.Second)
	for opener.written("hw:1,0") < 2*2048 {
		if time.Now().After(deadline) {
			t.Fatalf("spdif sink got %d samples", opener.written("hw:1,0"))
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := d.ClearTransport(ctx); err != nil {
		t.Fatalf("ClearTransport() error: %v", err)
	}
	filters, err := d.Loop().Filters(ctx, eq.GroupAuxiliary)
	if err != nil || len(filters) != 2 {
		t.Fatalf("aux filters = %v, %v", filters, err)
	}
	relMu.Lock()
	got := slices.Clone(released)
	relMu.Unlock()
	if !slices.Equal(got, []int{fd}) {
		t.Fatalf("released %v, want [%d]", got, fd)
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestNewDaemonRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.CrossoverOrder = 5
	if _, err := NewDaemon(cfg); err == nil || !strings.Contains(err.Error(), "crossover_order") {
		t.Fatalf("NewDaemon() error = %v", err)
	}
}

func TestNewEnumeratorStatic(t *testing.T) {
	e := NewEnumerator(config.Devices{Static: []config.StaticDevice{{Name: "a", Type: "digital"}, {Name: "b"}, {Name: "c", Type: "spdif"}}})
	got, err := e.OutputDevices()
	if err != nil {
		t.Fatal(err)
	}
	want := []device.Device{{Name: "a", Class: device.ClassDigital}, {Name: "b", Class: device.ClassOther}, {Name: "c", Class: device.ClassDigital}}
	if !slices.Equal(got, want) {
		t.Fatalf("devices = %v, want %v", got, want)
	}
	if _, ok := NewEnumerator(config.Devices{ProcPCM: "/x"}).(device.ALSAEnumerator); !ok {
		t.Fatal("empty static list should enumerate procfs")
	}
}
