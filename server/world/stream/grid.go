package stream

import (
	"log/slog"
	"sync"

	"github.com/brentp/intintmap"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/orchardguard/tractor/server/world/scatter"
	"github.com/orchardguard/tractor/server/world/terrain"
)

const (
	// GroundProbeHeight is the height from which ground rays are cast.
	GroundProbeHeight = 1000.0
	// GroundFloor is the lowest height a ground hit may have. Hits below it
	// are treated as misses so callers can retry elsewhere.
	GroundFloor = -500.0
)

// Column is a realised grid cell: the chunk mesh and the scenery sampled on
// it. A Column is never replaced once realised.
type Column struct {
	Chunk       *terrain.Chunk
	Decorations []scatter.Point
	// Tick is the tick in which the column was realised.
	Tick int64
}

// Pos returns the grid position of the column.
func (c *Column) Pos() terrain.ChunkPos {
	return c.Chunk.Pos
}

type GridConfig struct {
	Logger    *slog.Logger
	Builder   *terrain.Builder
	Scatterer *scatter.Scatterer
	Metrics   *Metrics
	// Extent is the number of cells along each side of the grid. Cells from
	// -Extent/2 to Extent/2-1 are addressable on both axes.
	Extent int
	// Seed seeds the decoration stream of every chunk.
	Seed int64
}

// Grid is a fixed-extent occupancy table of realised chunks. Every cell moves
// from unoccupied to occupied at most once, and the check and the transition
// happen under one lock together with the chunk's construction.
type Grid struct {
	log       *slog.Logger
	builder   *terrain.Builder
	scatterer *scatter.Scatterer
	metrics   *Metrics

	extent, offset int
	seed           int64

	mu       sync.Mutex
	occupied []bool
	// slots maps a cell index to the index of its column in columns.
	slots   *intintmap.Map
	columns []*Column
	tick    int64
}

func NewGrid(cfg GridConfig) *Grid {
	if cfg.Builder == nil {
		panic("stream: grid requires builder")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Scatterer == nil {
		cfg.Scatterer = scatter.New(scatter.Config{})
	}
	if cfg.Extent <= 0 {
		cfg.Extent = 128
	}
	g := &Grid{
		log:       cfg.Logger,
		builder:   cfg.Builder,
		scatterer: cfg.Scatterer,
		metrics:   cfg.Metrics,
		extent:    cfg.Extent,
		offset:    cfg.Extent / 2,
		seed:      cfg.Seed,
	}
	g.reset()
	return g
}

// Extent returns the number of cells along each side of the grid.
func (g *Grid) Extent() int {
	return g.extent
}

// InExtent checks if pos is addressable by the grid.
func (g *Grid) InExtent(pos terrain.ChunkPos) bool {
	_, ok := g.cell(pos)
	return ok
}

func (g *Grid) cell(pos terrain.ChunkPos) (int, bool) {
	x, z := int(pos[0])+g.offset, int(pos[1])+g.offset
	if x < 0 || z < 0 || x >= g.extent || z >= g.extent {
		return 0, false
	}
	return x*g.extent + z, true
}

// IsBuilt checks if the cell at pos has been realised. Positions outside the
// extent are never built.
func (g *Grid) IsBuilt(pos terrain.ChunkPos) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isBuiltLocked(pos)
}

func (g *Grid) isBuiltLocked(pos terrain.ChunkPos) bool {
	i, ok := g.cell(pos)
	return ok && g.occupied[i]
}

// Build realises the cell at pos if it is within the extent and not yet built:
// the chunk mesh is built, the cell marked occupied and the scatterer's Count
// candidates sampled on the new chunk. Build returns false and does nothing otherwise.
func (g *Grid) Build(pos terrain.ChunkPos) (*Column, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i, ok := g.cell(pos)
	if !ok || g.occupied[i] {
		g.metrics.IncNoopBuilds()
		return nil, false
	}
	c := g.builder.Build(pos)
	col := &Column{
		Chunk:       c,
		Decorations: g.scatterer.Scatter(c, g.scatterer.Config().Count, g.seed),
		Tick:        g.tick,
	}
	g.occupied[i] = true
	g.slots.Put(int64(i), int64(len(g.columns)))
	g.columns = append(g.columns, col)

	g.metrics.IncBuilds(len(col.Decorations))
	g.log.Debug("chunk realised", "x", pos[0], "z", pos[1], "decorations", len(col.Decorations))
	return col, true
}

// UngeneratedNeighbours returns the 4-connected neighbours of pos that lie
// within the extent and are not yet built, in the order left, right, down
// (z-1) and up (z+1).
func (g *Grid) UngeneratedNeighbours(pos terrain.ChunkPos) []terrain.ChunkPos {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]terrain.ChunkPos, 0, 4)
	for _, n := range [...]terrain.ChunkPos{pos.Add(-1, 0), pos.Add(1, 0), pos.Add(0, -1), pos.Add(0, 1)} {
		if i, ok := g.cell(n); ok && !g.occupied[i] {
			out = append(out, n)
		}
	}
	return out
}

// Column returns the realised column at pos, if any.
func (g *Grid) Column(pos terrain.ChunkPos) (*Column, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.columnLocked(pos)
}

func (g *Grid) columnLocked(pos terrain.ChunkPos) (*Column, bool) {
	i, ok := g.cell(pos)
	if !ok {
		return nil, false
	}
	slot, ok := g.slots.Get(int64(i))
	if !ok {
		return nil, false
	}
	return g.columns[slot], true
}

// Columns returns all realised columns in the order they were realised.
func (g *Grid) Columns() []*Column {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Column, len(g.columns))
	copy(out, g.columns)
	return out
}

// Len returns the number of realised cells.
func (g *Grid) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.columns)
}

// Reset forgets every realised cell. It is only used when a new session
// starts.
func (g *Grid) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
}

func (g *Grid) reset() {
	g.occupied = make([]bool, g.extent*g.extent)
	g.slots = intintmap.New(256, 0.6)
	g.columns = nil
}

// setTick sets the tick stamped on columns realised from now on.
func (g *Grid) setTick(tick int64) {
	g.mu.Lock()
	g.tick = tick
	g.mu.Unlock()
}

// Raycast casts a ray against the collision surfaces of all realised columns
// and returns the nearest hit.
func (g *Grid) Raycast(origin, dir mgl64.Vec3) (terrain.Hit, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var (
		best  terrain.Hit
		found bool
	)
	for _, col := range g.columns {
		if hit, ok := col.Chunk.Collision.Raycast(origin, dir); ok && (!found || hit.Distance < best.Distance) {
			best, found = hit, true
		}
	}
	return best, found
}

// GroundAt casts a ray straight down at (x, z) against the chunk covering it.
// A point on a chunk seam is covered by the chunks on both sides, so the one
// on the negative side is tried when the other is not realised. GroundAt
// returns false if no covering chunk is realised or the hit lies below
// GroundFloor.
func (g *Grid) GroundAt(x, z float64) (mgl64.Vec3, bool) {
	conf := g.builder.Sampler().Config()
	pos := terrain.ChunkPosAt(x, z, conf.SizeX, conf.SizeZ)
	candidates := []terrain.ChunkPos{pos}
	onX, onZ := x == float64(pos[0])*conf.SizeX, z == float64(pos[1])*conf.SizeZ
	if onX {
		candidates = append(candidates, pos.Add(-1, 0))
	}
	if onZ {
		candidates = append(candidates, pos.Add(0, -1))
	}
	if onX && onZ {
		candidates = append(candidates, pos.Add(-1, -1))
	}

	for _, p := range candidates {
		g.mu.Lock()
		col, ok := g.columnLocked(p)
		g.mu.Unlock()
		if !ok {
			continue
		}
		hit, ok := col.Chunk.Collision.Raycast(mgl64.Vec3{x, GroundProbeHeight, z}, mgl64.Vec3{0, -1, 0})
		if !ok || hit.Point[1] < GroundFloor {
			return mgl64.Vec3{}, false
		}
		return hit.Point, true
	}
	return mgl64.Vec3{}, false
}
