// Package ledger keeps a SQLite record of every realised chunk so that runs
// with the same seed can be checked for identical geometry.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orchardguard/tractor/server/world/stream"
	"github.com/orchardguard/tractor/server/world/terrain"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotRecorded is returned by Verify if no record exists for a chunk.
	ErrNotRecorded = errors.New("ledger: chunk not recorded")
	// ErrMismatch is returned by Verify if a chunk's digest differs from the
	// recorded one.
	ErrMismatch = errors.New("ledger: chunk digest mismatch")
)

// Config holds the settings used to open a Ledger.
type Config struct {
	// Path is the SQLite database file. Parent directories are created.
	Path string
	// Log receives write failures and digest mismatches. If nil,
	// slog.Default() is used.
	Log *slog.Logger
	// QueueSize is the number of records that may wait for the writer before
	// new records are dropped. If 0, 4096 is used.
	QueueSize int
}

// Record is a stored summary of a realised chunk.
type Record struct {
	Seed        int64
	Pos         terrain.ChunkPos
	Digest      uint64
	Tick        int64
	Vertices    int
	Decorations int
	MinY, MaxY  float64
}

// Stats holds the counters of a Ledger.
type Stats struct {
	Written    uint64
	Dropped    uint64
	Mismatches uint64
	QueueDepth int
}

// Ledger writes chunk records on a background goroutine. RecordChunk never
// blocks; records are dropped when the writer falls behind.
type Ledger struct {
	db  *sql.DB
	log *slog.Logger

	ch   chan Record
	wg   sync.WaitGroup
	once sync.Once

	// mu guards closed and the closing of ch against concurrent sends.
	mu     sync.RWMutex
	closed bool

	written    atomic.Uint64
	dropped    atomic.Uint64
	mismatches atomic.Uint64
}

// Open opens or creates the ledger database at conf.Path and starts its
// writer.
func Open(conf Config) (*Ledger, error) {
	if conf.Path == "" {
		return nil, fmt.Errorf("open ledger: empty path")
	}
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.QueueSize <= 0 {
		conf.QueueSize = 4096
	}
	if err := os.MkdirAll(filepath.Dir(conf.Path), 0o755); err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db, err := sql.Open("sqlite", conf.Path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	l := &Ledger{db: db, log: conf.Log, ch: make(chan Record, conf.QueueSize)}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.loop()
	}()
	return l, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		seed INTEGER NOT NULL,
		x INTEGER NOT NULL,
		z INTEGER NOT NULL,
		digest TEXT NOT NULL,
		tick INTEGER NOT NULL,
		vertices INTEGER NOT NULL,
		decorations INTEGER NOT NULL,
		min_y REAL NOT NULL,
		max_y REAL NOT NULL,
		recorded_at TEXT NOT NULL,
		PRIMARY KEY (seed, x, z)
	);`)
	return err
}

// RecordChunk queues a record of col realised under seed.
func (l *Ledger) RecordChunk(seed int64, col *stream.Column) {
	minY, maxY := col.Chunk.HeightRange()
	l.enqueue(Record{
		Seed:        seed,
		Pos:         col.Pos(),
		Digest:      col.Chunk.Digest(),
		Tick:        col.Tick,
		Vertices:    len(col.Chunk.Vertices),
		Decorations: len(col.Decorations),
		MinY:        minY,
		MaxY:        maxY,
	})
}

func (l *Ledger) enqueue(r Record) {
	if l == nil {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.ch <- r:
	default:
		l.dropped.Add(1)
	}
}

// Stats returns the current counters of the Ledger.
func (l *Ledger) Stats() Stats {
	return Stats{
		Written:    l.written.Load(),
		Dropped:    l.dropped.Load(),
		Mismatches: l.mismatches.Load(),
		QueueDepth: len(l.ch),
	}
}

// Lookup returns the record stored for the chunk at pos under seed.
func (l *Ledger) Lookup(ctx context.Context, seed int64, pos terrain.ChunkPos) (Record, bool, error) {
	r := Record{Seed: seed, Pos: pos}
	var digest string
	err := l.db.QueryRowContext(ctx,
		`SELECT digest, tick, vertices, decorations, min_y, max_y FROM chunks WHERE seed=? AND x=? AND z=?`,
		seed, pos[0], pos[1],
	).Scan(&digest, &r.Tick, &r.Vertices, &r.Decorations, &r.MinY, &r.MaxY)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup chunk %v: %w", pos, err)
	}
	if r.Digest, err = parseDigest(digest); err != nil {
		return Record{}, false, fmt.Errorf("lookup chunk %v: %w", pos, err)
	}
	return r, true, nil
}

// Verify checks the digest of col against the one recorded for its position
// under seed.
func (l *Ledger) Verify(ctx context.Context, seed int64, col *stream.Column) error {
	r, ok, err := l.Lookup(ctx, seed, col.Pos())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("verify chunk %v: %w", col.Pos(), ErrNotRecorded)
	}
	if d := col.Chunk.Digest(); d != r.Digest {
		return fmt.Errorf("verify chunk %v: got %016x, recorded %016x: %w", col.Pos(), d, r.Digest, ErrMismatch)
	}
	return nil
}

// Count returns the number of chunks recorded under seed.
func (l *Ledger) Count(ctx context.Context, seed int64) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE seed=?`, seed).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Close stops accepting records, flushes the queue and closes the database.
func (l *Ledger) Close() error {
	var err error
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.ch)
		l.mu.Unlock()

		l.wg.Wait()
		err = l.db.Close()
	})
	return err
}

func (l *Ledger) loop() {
	ctx := context.Background()
	for r := range l.ch {
		if err := l.write(ctx, r); err != nil {
			l.log.Error("Ledger write failed.", "x", r.Pos[0], "z", r.Pos[1], "error", err)
		}
	}
}

// write stores r unless a record for the same chunk exists. An existing record
// with a different digest is reported as a mismatch and left unchanged.
func (l *Ledger) write(ctx context.Context, r Record) error {
	var existing string
	err := l.db.QueryRowContext(ctx, `SELECT digest FROM chunks WHERE seed=? AND x=? AND z=?`, r.Seed, r.Pos[0], r.Pos[1]).Scan(&existing)
	switch {
	case err == nil:
		if existing != formatDigest(r.Digest) {
			l.mismatches.Add(1)
			l.log.Warn("Chunk digest differs from ledger.", "seed", r.Seed, "x", r.Pos[0], "z", r.Pos[1], "digest", formatDigest(r.Digest), "recorded", existing)
		}
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO chunks(seed,x,z,digest,tick,vertices,decorations,min_y,max_y,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		r.Seed, r.Pos[0], r.Pos[1], formatDigest(r.Digest), r.Tick, r.Vertices, r.Decorations, r.MinY, r.MaxY,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err == nil {
		l.written.Add(1)
	}
	return err
}

// Digests are stored as hex text since SQLite integers are signed.
func formatDigest(d uint64) string {
	return fmt.Sprintf("%016x", d)
}

func parseDigest(s string) (uint64, error) {
	var d uint64
	if _, err := fmt.Sscanf(s, "%016x", &d); err != nil {
		return 0, fmt.Errorf("parse digest %q: %w", s, err)
	}
	return d, nil
}
