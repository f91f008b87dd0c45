package terrain

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// Vertex is a single vertex of a chunk mesh. Positions are in world space.
type Vertex struct {
	Pos    mgl64.Vec3
	Normal mgl64.Vec3
	Colour mgl64.Vec4
	Band   Band
}

// Chunk is one realised cell of terrain. A Chunk is immutable once Build
// returns it: neither the vertex nor the index buffer may be modified.
type Chunk struct {
	// Pos is the grid position of the chunk and its identity.
	Pos ChunkPos
	// Origin is the world-space corner of the chunk, Pos scaled by the chunk
	// size.
	Origin mgl64.Vec3
	// Subdivisions is the number of quads along each side.
	Subdivisions int
	// Vertices holds (Subdivisions+1)^2 vertices, row-major by Z then X.
	Vertices []Vertex
	// Indices holds three indices per triangle, two triangles per quad.
	Indices []uint32
	// Collision is the surface handed to the physics collaborator. It shares
	// the topology of the render mesh.
	Collision *CollisionSurface
}

// Vertex returns the vertex at column i and row j of the chunk.
func (c *Chunk) Vertex(i, j int) Vertex {
	return c.Vertices[j*(c.Subdivisions+1)+i]
}

// Triangles returns the number of triangles in the chunk mesh.
func (c *Chunk) Triangles() int {
	return len(c.Indices) / 3
}

// HeightRange returns the lowest and highest vertex elevation of the chunk.
func (c *Chunk) HeightRange() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range c.Vertices {
		lo, hi = math.Min(lo, v.Pos[1]), math.Max(hi, v.Pos[1])
	}
	return lo, hi
}

// Digest returns a hash of the vertex and index buffers of the chunk. Equal
// digests mean byte-for-byte equal geometry.
func (c *Chunk) Digest() uint64 {
	h := xxhash.New()
	var tmp [8]byte
	put := func(f float64) {
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
		_, _ = h.Write(tmp[:])
	}
	for _, v := range c.Vertices {
		for _, f := range v.Pos {
			put(f)
		}
		for _, f := range v.Normal {
			put(f)
		}
		for _, f := range v.Colour {
			put(f)
		}
	}
	for _, i := range c.Indices {
		binary.LittleEndian.PutUint32(tmp[:4], i)
		_, _ = h.Write(tmp[:4])
	}
	return h.Sum64()
}
