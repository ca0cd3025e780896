package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cbegin/eqlink-go/internal/codec"
	"github.com/cbegin/eqlink-go/internal/controller"
	"github.com/cbegin/eqlink-go/internal/device"
	"github.com/cbegin/eqlink-go/internal/eq"
)

const (
	sendQueue    = 32
	writeTimeout = 5 * time.Second
	queryTimeout = 2 * time.Second
)

// Backend is the controller side of the link. *controller.Loop implements it.
type Backend interface {
	Post(ctx context.Context, m controller.Message) error
	Filters(ctx context.Context, group eq.Group) ([]eq.Filter, error)
	IOCapabilities(ctx context.Context) ([]device.Identity, error)
	IOConfiguration(ctx context.Context) (controller.IOConfig, error)
}

type Server struct {
	backend  Backend
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	ws   *websocket.Conn
	send chan Envelope
}

func NewServer(backend Backend, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		backend: backend,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler returns a mux serving the websocket on path.
func (s *Server) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, s)
	return mux
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr, path string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("link: %w", err)
	}
	return s.Serve(ctx, ln, path)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener, path string) error {
	srv := &http.Server{Handler: s.Handler(path)}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info("link listening", "addr", ln.Addr().String(), "path", path)

	select {
	case err := <-errc:
		return fmt.Errorf("link: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeClients()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("link: %w", err)
	}
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &client{ws: ws, send: make(chan Envelope, sendQueue)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Info("client connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go s.writeLoop(c, done)
	s.readLoop(r.Context(), c)

	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	<-done
	ws.Close()
	s.log.Info("client disconnected", "remote", r.RemoteAddr)
}

func (s *Server) readLoop(ctx context.Context, c *client) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("read failed", "error", err)
			}
			return
		}
		if mt != websocket.BinaryMessage {
			s.reply(c, Envelope{Op: OpError, Error: "binary messages only"})
			continue
		}
		var req Envelope
		if err := msgpack.Unmarshal(data, &req); err != nil {
			s.reply(c, Envelope{Op: OpError, Error: "bad envelope: " + err.Error()})
			continue
		}
		s.reply(c, s.handle(ctx, req))
	}
}

func (s *Server) writeLoop(c *client, done chan struct{}) {
	defer close(done)
	for env := range c.send {
		data, err := msgpack.Marshal(env)
		if err != nil {
			s.log.Error("encode envelope failed", "error", err)
			continue
		}
		c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
			s.log.Debug("write failed", "error", err)
			// Drain so senders never block on a dead client.
			for range c.send {
			}
			return
		}
	}
}

func (s *Server) reply(c *client, env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.send <- env:
	default:
		s.log.Warn("client too slow, dropping message", "op", env.Op, "uuid", env.UUID)
	}
}

func (s *Server) handle(ctx context.Context, req Envelope) Envelope {
	id, err := uuid.Parse(req.UUID)
	if err != nil {
		return errorEnvelope(req, fmt.Errorf("bad uuid: %w", err))
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	switch req.Op {
	case OpRead:
		value, err := s.read(ctx, id)
		if err != nil {
			return errorEnvelope(req, err)
		}
		return Envelope{Op: OpRead, UUID: req.UUID, Value: value}
	case OpWrite:
		if err := s.write(ctx, id, req.Value); err != nil {
			return errorEnvelope(req, err)
		}
		return Envelope{Op: OpWrite, UUID: req.UUID}
	default:
		return errorEnvelope(req, fmt.Errorf("unknown op %q", req.Op))
	}
}

func (s *Server) read(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if group, ok := groupOf(id); ok {
		filters, err := s.backend.Filters(ctx, group)
		if err != nil {
			return nil, err
		}
		return codec.EncodeFilters(filters), nil
	}
	switch id {
	case IOCapsUUID:
		ids, err := s.backend.IOCapabilities(ctx)
		if err != nil {
			return nil, err
		}
		return encodeIdentities(ids), nil
	case IOConfUUID:
		conf, err := s.backend.IOConfiguration(ctx)
		if err != nil {
			return nil, err
		}
		return encodeIdentities([]device.Identity{conf.Input, conf.Output}), nil
	}
	return nil, fmt.Errorf("unknown property %s", id)
}

func (s *Server) write(ctx context.Context, id uuid.UUID, value []byte) error {
	if group, ok := groupOf(id); ok {
		filters, err := codec.DecodeFilters(value)
		if err != nil {
			s.log.Warn("filter update rejected", "group", group.String(), "bytes", len(value), "error", err)
			return err
		}
		return s.backend.Post(ctx, controller.SetFilters{Group: group, Filters: filters})
	}
	switch id {
	case IOConfUUID:
		if len(value) != 2*IdentitySize {
			return fmt.Errorf("io configuration needs %d bytes, got %d", 2*IdentitySize, len(value))
		}
		in, _ := ParseIdentity(value[:IdentitySize])
		out, _ := ParseIdentity(value[IdentitySize:])
		if err := s.backend.Post(ctx, controller.SetInput{Identity: in}); err != nil {
			return err
		}
		return s.backend.Post(ctx, controller.SetOutput{Identity: out})
	case IOCapsUUID:
		return errors.New("io capabilities are read-only")
	}
	return fmt.Errorf("unknown property %s", id)
}

func errorEnvelope(req Envelope, err error) Envelope {
	return Envelope{Op: OpError, UUID: req.UUID, Error: err.Error()}
}

// Notify broadcasts an accepted filter update to every client. It never
// blocks and is meant to be registered as a controller.Handler.
func (s *Server) Notify(ev controller.FilterGroupUpdated) {
	id, ok := GroupUUID(ev.Group)
	if !ok {
		return
	}
	env := Envelope{Op: OpNotify, UUID: id.String(), Value: codec.EncodeFilters(ev.Filters)}
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		s.reply(c, env)
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.ws.Close()
	}
}
