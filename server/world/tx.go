package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/orchardguard/tractor/server/world/stream"
	"github.com/orchardguard/tractor/server/world/terrain"
)

// Tx represents a synchronised transaction performed on a World. Most
// operations on a World can only be called through a transaction. Tx must
// not be used after the ExecFunc it was passed to returns.
type Tx struct {
	w      *World
	closed bool
}

// World returns the World this transaction operates on.
func (tx *Tx) World() *World {
	return tx.world()
}

// Build realises the chunk at pos if it is inside the grid extent and not yet
// realised. The column is returned together with true if it was built by this
// call. Handlers are notified of the new chunk.
func (tx *Tx) Build(pos terrain.ChunkPos) (*stream.Column, bool) {
	w := tx.world()
	col, ok := w.stream.Grid().Build(pos)
	if ok {
		w.conf.Ledger.RecordChunk(w.conf.Seed, col)
		w.Handler().HandleChunkRealise(tx, col)
	}
	return col, ok
}

// IsBuilt reports whether the chunk at pos has been realised.
func (tx *Tx) IsBuilt(pos terrain.ChunkPos) bool {
	return tx.world().stream.Grid().IsBuilt(pos)
}

// Column returns the realised column at pos.
func (tx *Tx) Column(pos terrain.ChunkPos) (*stream.Column, bool) {
	return tx.world().stream.Grid().Column(pos)
}

// Columns returns every realised column.
func (tx *Tx) Columns() []*stream.Column {
	return tx.world().stream.Grid().Columns()
}

// Neighbours returns the in-extent neighbours of pos that are not realised
// yet, in left, right, down, up order.
func (tx *Tx) Neighbours(pos terrain.ChunkPos) []terrain.ChunkPos {
	return tx.world().stream.Grid().UngeneratedNeighbours(pos)
}

// HeightAt returns the terrain elevation at the world coordinates (x, z).
func (tx *Tx) HeightAt(x, z float64) float64 {
	return tx.world().sampler.HeightAt(x, z)
}

// GroundAt returns the point where a ray cast straight down from high above
// (x, z) meets realised terrain. False is returned if no realised surface lies
// below the point or the hit is below the ground floor.
func (tx *Tx) GroundAt(x, z float64) (mgl64.Vec3, bool) {
	return tx.world().groundAt(x, z)
}

// Raycast casts a ray against every realised collision surface and returns
// the nearest hit.
func (tx *Tx) Raycast(origin, dir mgl64.Vec3) (terrain.Hit, bool) {
	return tx.world().stream.Grid().Raycast(origin, dir)
}

// Touch reports that an agent touched the boundary of the chunk in ev. The
// event is resolved in the next tick.
func (tx *Tx) Touch(ev stream.BoundaryTouch) {
	tx.world().stream.Queue(ev)
}

// world returns the World of the Tx. It panics if the transaction was already
// closed.
func (tx *Tx) world() *World {
	if tx.closed {
		panic(ClosedPanicMessage)
	}
	return tx.w
}

// close finishes the Tx, causing any future calls to panic.
func (tx *Tx) close() {
	tx.closed = true
}

// ClosedPanicMessage is the value a Tx panics with when it is used after the
// transaction finished.
const ClosedPanicMessage = "world.Tx: use of transaction after transaction finishes is not permitted"

// normalTransaction is a transaction scheduled through World.Exec.
type normalTransaction struct {
	c chan struct{}
	f ExecFunc
}

// Run creates a *Tx and calls ntx.f with it. Once complete, ntx.c is closed.
func (ntx normalTransaction) Run(w *World) {
	tx := &Tx{w: w}
	ntx.f(tx)
	tx.close()
	close(ntx.c)
}
