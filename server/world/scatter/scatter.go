package scatter

import (
	"encoding/binary"
	"math/rand/v2"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/orchardguard/tractor/server/world/terrain"
	"golang.org/x/exp/constraints"
)

// Kind is the kind of static scenery placed at a decoration point.
type Kind uint8

const (
	KindTree Kind = iota
	KindRock
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == KindRock {
		return "rock"
	}
	return "tree"
}

// Point is a sampled surface location used to place static scenery.
type Point struct {
	Position mgl64.Vec3
	Kind     Kind
}

// Config holds the decoration constants shared with the rest of the game.
type Config struct {
	// Count is the number of candidate points the streaming grid samples per
	// chunk. Zero disables scenery.
	Count int
	// TreeChance is the probability that an accepted point becomes a tree
	// rather than a rock.
	TreeChance float64
	// ExclusionRadius is the minimum distance between two accepted points.
	ExclusionRadius float64
	// Playable is the inner rectangle kept free of scenery.
	Playable terrain.Rect
}

// DefaultConfig returns the decoration constants used by the game.
func DefaultConfig() Config {
	return Config{
		Count:           40,
		TreeChance:      0.7,
		ExclusionRadius: 2,
		Playable:        terrain.Rect{MinX: -150, MinZ: -150, MaxX: 150, MaxZ: 150},
	}
}

// Scatterer samples decoration points on chunk surfaces.
type Scatterer struct {
	conf Config
}

// New creates a Scatterer using the Config passed.
func New(conf Config) *Scatterer {
	return &Scatterer{conf: conf}
}

// Config returns the Config of the Scatterer.
func (s *Scatterer) Config() Config {
	return s.conf
}

// Scatter samples count candidate points uniformly by area over the surface
// of c and returns those that survive filtering. The result only depends on
// the chunk position, its geometry and seed, never on what was scattered
// before. A chunk without surface area yields no points.
func (s *Scatterer) Scatter(c *terrain.Chunk, count int, seed int64) []Point {
	cum, total := cumulativeAreas(c)
	if total <= 0 || count <= 0 {
		return nil
	}
	r := rand.New(rand.NewPCG(uint64(seed), ChunkSeed(seed, c.Pos)))

	points := make([]Point, 0, count)
	for i := 0; i < count; i++ {
		// Every candidate draws exactly four values so that rejections do
		// not shift the stream of later candidates.
		target, u, v, kind := r.Float64()*total, r.Float64(), r.Float64(), r.Float64()

		tri := clamp(sort.SearchFloat64s(cum, target), 0, len(cum)-1)
		a := c.Vertices[c.Indices[tri*3]].Pos
		b := c.Vertices[c.Indices[tri*3+1]].Pos
		d := c.Vertices[c.Indices[tri*3+2]].Pos
		if u+v > 1 {
			u, v = 1-u, 1-v
		}
		p := a.Add(b.Sub(a).Mul(u)).Add(d.Sub(a).Mul(v))

		if !s.conf.Playable.Empty() && s.conf.Playable.Contains(p[0], p[2]) {
			continue
		}
		if s.crowded(points, p) {
			continue
		}
		k := KindRock
		if kind < s.conf.TreeChance {
			k = KindTree
		}
		points = append(points, Point{Position: p, Kind: k})
	}
	return points
}

func (s *Scatterer) crowded(points []Point, p mgl64.Vec3) bool {
	if s.conf.ExclusionRadius <= 0 {
		return false
	}
	r2 := s.conf.ExclusionRadius * s.conf.ExclusionRadius
	for _, o := range points {
		dx, dz := o.Position[0]-p[0], o.Position[2]-p[2]
		if dx*dx+dz*dz < r2 {
			return true
		}
	}
	return false
}

// ChunkSeed derives the seed of the chunk-local random stream from the world
// seed and the chunk position.
func ChunkSeed(seed int64, pos terrain.ChunkPos) uint64 {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], uint64(seed))
	binary.LittleEndian.PutUint32(b[8:12], uint32(pos[0]))
	binary.LittleEndian.PutUint32(b[12:], uint32(pos[1]))
	return xxhash.Sum64(b[:])
}

// cumulativeAreas returns the running sum of triangle surface areas of c.
func cumulativeAreas(c *terrain.Chunk) ([]float64, float64) {
	cum := make([]float64, 0, len(c.Indices)/3)
	var total float64
	for t := 0; t+2 < len(c.Indices); t += 3 {
		a := c.Vertices[c.Indices[t]].Pos
		b := c.Vertices[c.Indices[t+1]].Pos
		d := c.Vertices[c.Indices[t+2]].Pos
		total += b.Sub(a).Cross(d.Sub(a)).Len() / 2
		cum = append(cum, total)
	}
	return cum, total
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
