// Package observer streams realised chunks to websocket clients, standing in
// for a renderer that consumes the terrain.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/orchardguard/tractor/server/world"
	"github.com/orchardguard/tractor/server/world/scatter"
	"github.com/orchardguard/tractor/server/world/stream"
)

// Config holds the settings of a Hub.
type Config struct {
	// Log is used to report dropped clients. If nil, slog.Default() is used.
	Log *slog.Logger
	// AllowRemote permits clients from non-loopback addresses.
	AllowRemote bool
	// QueueSize is the number of messages buffered per client before further
	// messages are dropped. If 0, 1024 is used.
	QueueSize int
}

// Hub implements world.Handler and forwards every realised chunk to the
// subscribed clients.
type Hub struct {
	world.NopHandler

	w    *world.World
	log  *slog.Logger
	conf Config

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Uint64

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	id   string
	mesh bool
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func (s *session) close() {
	s.once.Do(func() { close(s.done) })
}

// New creates a Hub for w and registers it as the Handler of w.
func (conf Config) New(w *world.World) *Hub {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.QueueSize <= 0 {
		conf.QueueSize = 1024
	}
	h := &Hub{
		w:    w,
		log:  conf.Log,
		conf: conf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
	}
	w.Handle(h)
	return h
}

// Sessions returns the number of subscribed clients.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Dropped returns the number of messages dropped because a client fell behind.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// HandleChunkRealise broadcasts col to every session.
func (h *Hub) HandleChunkRealise(_ *world.Tx, col *stream.Column) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sessions) == 0 {
		return
	}
	var plain, mesh []byte
	for _, s := range h.sessions {
		b := &plain
		if s.mesh {
			b = &mesh
		}
		if *b == nil {
			*b, _ = json.Marshal(chunkMsg(col, s.mesh))
		}
		h.send(s, *b)
	}
}

// HandleClose disconnects every session.
func (h *Hub) HandleClose(*world.Tx) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.sessions {
		s.close()
		delete(h.sessions, id)
	}
}

func (h *Hub) send(s *session, b []byte) {
	select {
	case s.out <- b:
	default:
		h.dropped.Add(1)
	}
}

// BootstrapHandler serves a BootstrapResponse describing the world.
func (h *Hub) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !h.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conf := h.w.Terrain()
		resp := BootstrapResponse{
			ProtocolVersion: ProtocolVersion,
			Seed:            h.w.Seed(),
			Tick:            h.w.CurrentTick(),
			ChunkSize:       [2]float64{conf.SizeX, conf.SizeZ},
			Subdivisions:    conf.Subdivisions,
			Chunks:          h.w.ChunkCount(),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

// WSHandler upgrades the request to a websocket and streams chunks to it until
// either side closes the connection.
func (h *Hub) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !h.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != ProtocolVersion {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		s := h.subscribe(sub.Mesh)
		defer h.unsubscribe(s)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			writeErr <- h.writeLoop(ctx, conn, s)
		}()

		// Reader loop: only used to notice the client going away.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		cancel()

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (h *Hub) writeLoop(ctx context.Context, conn *websocket.Conn, s *session) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "world closed"), time.Now().Add(time.Second))
			// Unblock the reader.
			return conn.Close()
		case b := <-s.out:
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.log.Debug("Observer write failed.", "session", s.id, "error", err)
				return err
			}
		}
	}
}

// subscribe registers a session on the world goroutine so that it receives
// every chunk exactly once: the backlog is queued in the same transaction in
// which the session starts listening.
func (h *Hub) subscribe(mesh bool) *session {
	s := &session{
		id:   fmt.Sprintf("O%d", h.nextID.Add(1)),
		mesh: mesh,
		done: make(chan struct{}),
	}
	<-h.w.Exec(func(tx *world.Tx) {
		cols := tx.Columns()
		s.out = make(chan []byte, h.conf.QueueSize+len(cols)+1)
		welcome, _ := json.Marshal(WelcomeMsg{
			Type:      "WELCOME",
			SessionID: s.id,
			Seed:      h.w.Seed(),
			Tick:      h.w.CurrentTick(),
			Chunks:    len(cols),
		})
		s.out <- welcome
		for _, col := range cols {
			b, _ := json.Marshal(chunkMsg(col, mesh))
			s.out <- b
		}
		h.mu.Lock()
		h.sessions[s.id] = s
		h.mu.Unlock()
	})
	h.log.Debug("Observer subscribed.", "session", s.id)
	return s
}

func (h *Hub) unsubscribe(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
	s.close()
}

func (h *Hub) allowed(r *http.Request) bool {
	return h.conf.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

func chunkMsg(col *stream.Column, mesh bool) ChunkMsg {
	minY, maxY := col.Chunk.HeightRange()
	msg := ChunkMsg{
		Type:      "CHUNK",
		X:         col.Pos().X(),
		Z:         col.Pos().Z(),
		Tick:      col.Tick,
		Digest:    fmt.Sprintf("%016x", col.Chunk.Digest()),
		Vertices:  len(col.Chunk.Vertices),
		Triangles: len(col.Chunk.Indices) / 3,
		MinY:      minY,
		MaxY:      maxY,
	}
	for _, p := range col.Decorations {
		if p.Kind == scatter.KindRock {
			msg.Rocks++
		} else {
			msg.Trees++
		}
	}
	if mesh {
		msg.Heights = make([]float64, len(col.Chunk.Vertices))
		msg.Bands = make([]int, len(col.Chunk.Vertices))
		for i, v := range col.Chunk.Vertices {
			msg.Heights[i], msg.Bands[i] = v.Pos[1], int(v.Band)
		}
	}
	return msg
}

func isLoopbackRemote(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
