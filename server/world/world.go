package world

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/orchardguard/tractor/server/world/stream"
	"github.com/orchardguard/tractor/server/world/terrain"
)

// World implements the streamed terrain of a play session. It owns the
// streaming grid and serialises every mutation of it through transactions
// run on a single goroutine.
type World struct {
	conf    Config
	sampler *terrain.Sampler
	stream  *stream.System

	queue        chan transaction
	queueClosing chan struct{}
	queueing     sync.WaitGroup

	o sync.Once

	handler atomic.Pointer[Handler]

	closing chan struct{}
	running sync.WaitGroup

	currentTick atomic.Int64
	tps         atomic.Uint64
}

// transaction is a type that may be added to the transaction queue of a World.
// Its Run method is called when the transaction is taken out of the queue.
type transaction interface {
	Run(w *World)
}

// Seed returns the seed of the World.
func (w *World) Seed() int64 {
	return w.conf.Seed
}

// Terrain returns the terrain constants of the World.
func (w *World) Terrain() terrain.Config {
	return w.conf.Terrain
}

// CurrentTick returns the current tick of the world. The tick is incremented
// every time the world is ticked.
func (w *World) CurrentTick() int64 {
	return w.currentTick.Load()
}

// TPS returns the average ticks per second measured over recent ticks.
func (w *World) TPS() float64 {
	return math.Float64frombits(w.tps.Load())
}

// HeightAt returns the terrain elevation at the world coordinates (x, z).
// HeightAt does not require the chunk at (x, z) to be realised.
func (w *World) HeightAt(x, z float64) float64 {
	return w.sampler.HeightAt(x, z)
}

// ChunkCount returns the number of realised chunks.
func (w *World) ChunkCount() int {
	return w.stream.Grid().Len()
}

// Metrics returns the streaming counters of the World.
func (w *World) Metrics() stream.MetricsSnapshot {
	return w.stream.Metrics().Snapshot()
}

// PendingEvents returns the number of boundary events waiting for the next
// tick.
func (w *World) PendingEvents() int {
	return w.stream.Controller().Pending()
}

// Extent returns the number of grid cells along each side of the streaming
// grid.
func (w *World) Extent() int {
	return w.stream.Grid().Extent()
}

// TouchBoundary queues a boundary-touch event reported by the physics
// collaborator. It may be called from any goroutine; the event is resolved in
// the next tick.
func (w *World) TouchBoundary(ev stream.BoundaryTouch) {
	w.stream.Queue(ev)
}

// ExecFunc is a function that performs a synchronised transaction on a World.
type ExecFunc func(tx *Tx)

// Exec performs a synchronised transaction f on a World. Exec returns a channel
// that is closed once the transaction is complete. If the World is already
// closed, f is not run and the channel returned is closed immediately.
func (w *World) Exec(f ExecFunc) <-chan struct{} {
	c := make(chan struct{})
	select {
	case w.queue <- normalTransaction{c: c, f: f}:
	case <-w.queueClosing:
		close(c)
	}
	return c
}

// handleTransactions continuously reads transactions from the queue and runs
// them.
func (w *World) handleTransactions() {
	for {
		select {
		case tx := <-w.queue:
			tx.Run(w)
		case <-w.queueClosing:
			w.queueing.Done()
			return
		}
	}
}

// Handle changes the current Handler of the world. As a result, events called
// by the world will call handlers of the Handler passed. Handle sets the world's
// Handler to NopHandler if nil is passed.
func (w *World) Handle(h Handler) {
	if h == nil {
		h = NopHandler{}
	}
	w.handler.Store(&h)
}

// Handler returns the Handler of the world.
func (w *World) Handler() Handler {
	return *w.handler.Load()
}

// realiseSpawn builds every chunk within the spawn radius of the origin,
// nearest rings first.
func (w *World) realiseSpawn() {
	grid := w.stream.Grid()
	r := int32(max(w.conf.SpawnRadius, 0))
	for ring := int32(0); ring <= r; ring++ {
		for x := -ring; x <= ring; x++ {
			for z := -ring; z <= ring; z++ {
				if max(abs(x), abs(z)) != ring {
					continue
				}
				if col, ok := grid.Build(terrain.ChunkPos{x, z}); ok {
					w.conf.Ledger.RecordChunk(w.conf.Seed, col)
				}
			}
		}
	}
	w.conf.Log.Info("Spawn area realised.", "chunks", grid.Len(), "seed", w.conf.Seed)
}

// Close closes the world. The handler receives HandleClose, ticking stops and
// the ledger is closed.
func (w *World) Close() error {
	var err error
	w.o.Do(func() { err = w.close() })
	return err
}

func (w *World) close() error {
	<-w.Exec(func(tx *Tx) {
		// Let user code run anything that needs to be finished before closing.
		w.Handler().HandleClose(tx)
		w.Handle(NopHandler{})
	})

	close(w.closing)
	w.running.Wait()

	close(w.queueClosing)
	w.queueing.Wait()

	w.conf.Log.Debug("Closing ledger...")
	return w.conf.Ledger.Close()
}

// groundAt returns the first point on realised terrain straight below
// (x, GroundProbeHeight, z).
func (w *World) groundAt(x, z float64) (mgl64.Vec3, bool) {
	return w.stream.Grid().GroundAt(x, z)
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
