package console

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/orchardguard/tractor/server"
	"github.com/orchardguard/tractor/server/cmd/builtin"
	"github.com/orchardguard/tractor/server/world"
	"github.com/orchardguard/tractor/server/world/terrain"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	uc := server.DefaultConfig()
	uc.Observer.Address = ""
	uc.Ledger.Enabled = false
	conf, err := uc.Config(nil)
	if err != nil {
		t.Fatalf("convert config: %v", err)
	}
	conf.World.TickInterval = -1
	srv, err := conf.New()
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	builtin.Register(srv)
	return srv
}

func TestConsoleExecutesCommands(t *testing.T) {
	srv := newTestServer(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	input := strings.Join([]string{
		"build 1 0",
		"/neighbours 0 0",
		"",
		"touch 0 0",
		"unknowncommand",
	}, "\n")
	agent := uuid.MustParse("6f1c3a52-8d0e-4b7a-9c2f-3e5d7a1b0c44")
	c := New(srv, log).WithReader(strings.NewReader(input)).WithAgent(agent)
	if n := c.Run(context.Background()); n != 4 {
		t.Fatalf("expected 4 executed lines, got %d", n)
	}

	<-srv.World().Exec(func(tx *world.Tx) {
		if !tx.IsBuilt(terrain.ChunkPos{1, 0}) {
			t.Fatalf("expected build command to realise chunk (1, 0)")
		}
	})
	if srv.World().PendingEvents() != 1 {
		t.Fatalf("expected touch command to queue one event")
	}
	out := buf.String()
	for _, want := range []string{
		"Realised chunk (1, 0)",
		"Unrealised neighbours of (0, 0): [(-1, 0) (0, -1) (0, 1)]",
		"Boundary touch on (0, 0) by " + agent.String() + " queued for the next tick",
		"Unknown command: unknowncommand",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleStopsOnCancel(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Run must return without reading once the context is done.
	if n := New(srv, nil).WithReader(strings.NewReader("build 1 0\n")).Run(ctx); n != 0 {
		t.Fatalf("expected no lines executed, got %d", n)
	}
	if srv.World().ChunkCount() != 1 {
		t.Fatalf("expected no command to run")
	}
}

func TestConsoleAgentStable(t *testing.T) {
	srv := newTestServer(t)
	a, b := New(srv, nil), New(srv, nil)
	if a.Agent() == uuid.Nil || a.Agent() != b.Agent() {
		t.Fatalf("expected a stable non-nil agent, got %v and %v", a.Agent(), b.Agent())
	}
	if got := a.WithAgent(uuid.Nil).Agent(); got != b.Agent() {
		t.Fatalf("nil agent must not replace the default")
	}
}
