package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Builder builds chunk meshes displaced by a Sampler.
type Builder struct {
	s    *Sampler
	conf Config
}

// NewBuilder creates a Builder using the Sampler passed. The Sampler's Config
// must have been validated.
func NewBuilder(s *Sampler) *Builder {
	return &Builder{s: s, conf: s.Config()}
}

// Sampler returns the Sampler the Builder displaces vertices with.
func (b *Builder) Sampler() *Sampler {
	return b.s
}

// Bounds returns the world-space XZ rectangle covered by the chunk at pos.
func (b *Builder) Bounds(pos ChunkPos) Rect {
	x, z := float64(pos[0])*b.conf.SizeX, float64(pos[1])*b.conf.SizeZ
	return Rect{MinX: x, MinZ: z, MaxX: x + b.conf.SizeX, MaxZ: z + b.conf.SizeZ}
}

// Build builds the chunk at the grid position passed. Build always returns a
// new chunk with identical geometry for the same position.
func (b *Builder) Build(pos ChunkPos) *Chunk {
	n := b.conf.Subdivisions
	side := n + 1
	bounds := b.Bounds(pos)

	c := &Chunk{
		Pos:          pos,
		Origin:       mgl64.Vec3{bounds.MinX, 0, bounds.MinZ},
		Subdivisions: n,
		Vertices:     make([]Vertex, side*side),
		Indices:      make([]uint32, 0, n*n*6),
	}

	for j := 0; j < side; j++ {
		z := bounds.MinZ + float64(j)*b.conf.SizeZ/float64(n)
		for i := 0; i < side; i++ {
			x := bounds.MinX + float64(i)*b.conf.SizeX/float64(n)
			y := b.s.HeightAt(x, z)
			band := b.s.Band(b.s.Normalised(y))
			c.Vertices[j*side+i] = Vertex{
				Pos:    mgl64.Vec3{x, y, z},
				Colour: b.s.Colour(band),
				Band:   band,
			}
		}
	}

	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			a := uint32(j*side + i)
			r := a + 1
			u := a + uint32(side)
			d := u + 1
			// Both triangles wind counter-clockwise when seen from above.
			c.Indices = append(c.Indices, a, u, r, r, u, d)
		}
	}

	computeNormals(c.Vertices, c.Indices)

	positions := make([]mgl64.Vec3, len(c.Vertices))
	for i, v := range c.Vertices {
		positions[i] = v.Pos
	}
	lo, hi := c.HeightRange()
	c.Collision = &CollisionSurface{
		Positions: positions,
		Indices:   c.Indices,
		Bounds:    bounds,
		MinY:      lo,
		MaxY:      hi,
	}
	return c
}

// computeNormals sets every vertex normal to the normalised sum of the
// (area weighted) normals of the triangles sharing it.
func computeNormals(vertices []Vertex, indices []uint32) {
	for t := 0; t+2 < len(indices); t += 3 {
		ia, ib, ic := indices[t], indices[t+1], indices[t+2]
		a, b, c := vertices[ia].Pos, vertices[ib].Pos, vertices[ic].Pos
		face := b.Sub(a).Cross(c.Sub(a))
		vertices[ia].Normal = vertices[ia].Normal.Add(face)
		vertices[ib].Normal = vertices[ib].Normal.Add(face)
		vertices[ic].Normal = vertices[ic].Normal.Add(face)
	}
	for i := range vertices {
		if l := vertices[i].Normal.Len(); l > 0 && !math.IsInf(l, 0) {
			vertices[i].Normal = vertices[i].Normal.Mul(1 / l)
			continue
		}
		vertices[i].Normal = mgl64.Vec3{0, 1, 0}
	}
}
