package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/orchardguard/tractor/server/world"
	"github.com/orchardguard/tractor/server/world/noise"
	"github.com/orchardguard/tractor/server/world/scatter"
	"github.com/orchardguard/tractor/server/world/stream"
	"github.com/orchardguard/tractor/server/world/terrain"
)

var _ world.Ledger = (*Ledger)(nil)

func buildColumns(t *testing.T, seed int64, pos ...terrain.ChunkPos) []*stream.Column {
	t.Helper()
	builder := terrain.NewBuilder(terrain.NewSampler(noise.New(seed, noise.Config{}), terrain.DefaultConfig()))
	sys := stream.Config{
		Builder:   builder,
		Scatterer: scatter.New(scatter.DefaultConfig()),
		Seed:      seed,
	}.New(nil)
	cols := make([]*stream.Column, 0, len(pos))
	for _, p := range pos {
		col, ok := sys.Grid().Build(p)
		if !ok {
			t.Fatalf("build %v failed", p)
		}
		cols = append(cols, col)
	}
	return cols
}

func openTestLedger(t *testing.T, path string) *Ledger {
	t.Helper()
	l, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return l
}

func TestLedgerRecordAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "ledger.sqlite")
	cols := buildColumns(t, 1135, terrain.ChunkPos{0, 0}, terrain.ChunkPos{1, 0})

	l := openTestLedger(t, path)
	for _, col := range cols {
		l.RecordChunk(1135, col)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close ledger: %v", err)
	}
	if st := l.Stats(); st.Written != 2 || st.Dropped != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}

	// A fresh run with the same seed must reproduce the recorded geometry.
	l = openTestLedger(t, path)
	t.Cleanup(func() { _ = l.Close() })
	ctx := context.Background()
	for _, col := range buildColumns(t, 1135, terrain.ChunkPos{0, 0}, terrain.ChunkPos{1, 0}) {
		if err := l.Verify(ctx, 1135, col); err != nil {
			t.Fatalf("verify %v: %v", col.Pos(), err)
		}
	}
	n, err := l.Count(ctx, 1135)
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v; want 2", n, err)
	}

	r, ok, err := l.Lookup(ctx, 1135, terrain.ChunkPos{1, 0})
	if err != nil || !ok {
		t.Fatalf("lookup: %v %v", ok, err)
	}
	if r.Vertices != 21*21 || r.Digest != cols[1].Chunk.Digest() {
		t.Fatalf("unexpected record %+v", r)
	}
}

func TestLedgerVerifyErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.sqlite")
	l := openTestLedger(t, path)
	cols := buildColumns(t, 1135, terrain.ChunkPos{0, 0})
	other := buildColumns(t, 7, terrain.ChunkPos{0, 0})

	l.RecordChunk(1135, cols[0])
	if err := l.Close(); err != nil {
		t.Fatalf("close ledger: %v", err)
	}
	ctx := context.Background()
	if err := l.Verify(ctx, 1135, other[0]); err == nil {
		// The database is closed; Verify must fail.
		t.Fatalf("expected error on closed ledger")
	}

	l = openTestLedger(t, path)
	t.Cleanup(func() { _ = l.Close() })
	if err := l.Verify(ctx, 1135, other[0]); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if err := l.Verify(ctx, 7, other[0]); !errors.Is(err, ErrNotRecorded) {
		t.Fatalf("expected ErrNotRecorded, got %v", err)
	}
}

func TestLedgerReportsMismatchOnRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.sqlite")
	col := buildColumns(t, 1135, terrain.ChunkPos{0, 0})[0]

	l := openTestLedger(t, path)
	l.RecordChunk(1135, col)
	minY, maxY := col.Chunk.HeightRange()
	l.enqueue(Record{Seed: 1135, Pos: col.Pos(), Digest: col.Chunk.Digest() + 1, MinY: minY, MaxY: maxY})
	if err := l.Close(); err != nil {
		t.Fatalf("close ledger: %v", err)
	}
	if st := l.Stats(); st.Written != 1 || st.Mismatches != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestLedgerDropsWhenFull(t *testing.T) {
	l := &Ledger{ch: make(chan Record, 1)}
	l.enqueue(Record{})
	l.enqueue(Record{})
	if st := l.Stats(); st.Dropped != 1 || st.QueueDepth != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestLedgerIgnoresRecordsAfterClose(t *testing.T) {
	l := openTestLedger(t, filepath.Join(t.TempDir(), "ledger.sqlite"))
	if err := l.Close(); err != nil {
		t.Fatalf("close ledger: %v", err)
	}
	// Must not panic on the closed channel.
	l.RecordChunk(1135, buildColumns(t, 1135, terrain.ChunkPos{0, 0})[0])
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestLedgerCloseWhileRecording(t *testing.T) {
	cols := buildColumns(t, 1135, terrain.ChunkPos{0, 0})
	l, err := Open(Config{Path: filepath.Join(t.TempDir(), "ledger.sqlite"), QueueSize: 1})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				l.RecordChunk(1135, cols[0])
			}
		}()
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close ledger: %v", err)
	}
	wg.Wait()
}

func TestDigestFormat(t *testing.T) {
	for _, d := range []uint64{0, 1, 1 << 63, ^uint64(0)} {
		got, err := parseDigest(formatDigest(d))
		if err != nil || got != d {
			t.Fatalf("digest %x round trip gave %x, %v", d, got, err)
		}
	}
}
