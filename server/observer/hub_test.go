package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/orchardguard/tractor/server/world"
	"github.com/orchardguard/tractor/server/world/scatter"
	"github.com/orchardguard/tractor/server/world/stream"
	"github.com/orchardguard/tractor/server/world/terrain"
)

func newTestHub(t *testing.T) (*world.World, *Hub, *httptest.Server) {
	t.Helper()
	w, err := world.Config{Seed: 1135, Scatter: scatter.DefaultConfig(), TickInterval: -1}.New()
	if err != nil {
		t.Fatalf("create world: %v", err)
	}
	h := Config{}.New(w)
	mux := http.NewServeMux()
	mux.HandleFunc("/bootstrap", h.BootstrapHandler())
	mux.HandleFunc("/ws", h.WSHandler())
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		_ = w.Close()
		srv.Close()
	})
	return w, h, srv
}

func dial(t *testing.T, srv *httptest.Server, sub SubscribeMsg) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return conn
}

func readJSON[T any](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	var v T
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&v); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return v
}

func TestHubStreamsChunks(t *testing.T) {
	w, h, srv := newTestHub(t)
	conn := dial(t, srv, SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: ProtocolVersion})

	welcome := readJSON[WelcomeMsg](t, conn)
	if welcome.Type != "WELCOME" || welcome.Seed != 1135 || welcome.Chunks != 1 {
		t.Fatalf("unexpected welcome %+v", welcome)
	}
	origin := readJSON[ChunkMsg](t, conn)
	if origin.X != 0 || origin.Z != 0 || origin.Vertices != 21*21 || origin.Triangles != 800 {
		t.Fatalf("unexpected backlog chunk %+v", origin)
	}
	if origin.Heights != nil {
		t.Fatalf("expected no mesh data without request")
	}
	if h.Sessions() != 1 {
		t.Fatalf("expected one session, got %d", h.Sessions())
	}

	w.TouchBoundary(stream.BoundaryTouch{Agent: uuid.New(), Chunk: terrain.ChunkPos{0, 0}})
	w.Tick()

	want := []terrain.ChunkPos{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for _, pos := range want {
		msg := readJSON[ChunkMsg](t, conn)
		if msg.X != pos.X() || msg.Z != pos.Z() || msg.Tick != 1 {
			t.Fatalf("chunk message %+v, want %v at tick 1", msg, pos)
		}
	}
}

func TestHubMeshData(t *testing.T) {
	_, _, srv := newTestHub(t)
	conn := dial(t, srv, SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: ProtocolVersion, Mesh: true})
	readJSON[WelcomeMsg](t, conn)

	// Decode loosely so the wire shape is checked, not what ChunkMsg accepts.
	raw := readJSON[map[string]any](t, conn)
	heights, ok := raw["heights"].([]any)
	if !ok || len(heights) != 21*21 {
		t.Fatalf("expected heights as an array of %d numbers, got %T", 21*21, raw["heights"])
	}
	bands, ok := raw["bands"].([]any)
	if !ok || len(bands) != 21*21 {
		t.Fatalf("expected bands as an array of %d numbers, got %T", 21*21, raw["bands"])
	}
	minY, maxY := raw["min_y"].(float64), raw["max_y"].(float64)
	for i := range heights {
		y, ok := heights[i].(float64)
		if !ok || y < minY || y > maxY {
			t.Fatalf("height %v outside [%v, %v]", heights[i], minY, maxY)
		}
		b, ok := bands[i].(float64)
		if !ok || b != float64(int(b)) || b < 0 || b > 3 {
			t.Fatalf("band %v is not an index in [0, 3]", bands[i])
		}
	}
}

func TestChunkMsgBandsEncodeAsArray(t *testing.T) {
	b, err := json.Marshal(ChunkMsg{Type: "CHUNK", Heights: []float64{1, 2}, Bands: []int{1, 3}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"bands":[1,3]`) {
		t.Fatalf("expected bands encoded as an array, got %s", b)
	}
}

func TestHubRejectsBadHandshake(t *testing.T) {
	_, h, srv := newTestHub(t)
	conn := dial(t, srv, SubscribeMsg{Type: "HELLO", ProtocolVersion: ProtocolVersion})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
	if h.Sessions() != 0 {
		t.Fatalf("expected no sessions")
	}
}

func TestHubBootstrap(t *testing.T) {
	_, _, srv := newTestHub(t)
	resp, err := http.Get(srv.URL + "/bootstrap")
	if err != nil {
		t.Fatalf("get bootstrap: %v", err)
	}
	defer resp.Body.Close()
	var b BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode bootstrap: %v", err)
	}
	if b.ProtocolVersion != ProtocolVersion || b.Seed != 1135 || b.Chunks != 1 || b.Subdivisions != 20 || b.ChunkSize != [2]float64{50, 50} {
		t.Fatalf("unexpected bootstrap %+v", b)
	}
}

func TestHubCloseDisconnects(t *testing.T) {
	w, h, srv := newTestHub(t)
	conn := dial(t, srv, SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: ProtocolVersion})
	readJSON[WelcomeMsg](t, conn)
	readJSON[ChunkMsg](t, conn)

	if err := w.Close(); err != nil {
		t.Fatalf("close world: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection to be closed")
	}
	if h.Sessions() != 0 {
		t.Fatalf("expected sessions to be cleared")
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:4000": true,
		"[::1]:80":       true,
		"10.0.0.4:4000":  false,
		"garbage":        false,
	} {
		if got := isLoopbackRemote(addr); got != want {
			t.Errorf("isLoopbackRemote(%q) = %v, want %v", addr, got, want)
		}
	}
}
