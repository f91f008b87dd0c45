package terrain

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/orchardguard/tractor/server/world/noise"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	conf := DefaultConfig()
	if err := conf.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	return NewBuilder(NewSampler(noise.New(1135, noise.Config{}), conf))
}

func TestBuildVertexLayout(t *testing.T) {
	b := newTestBuilder(t)
	c := b.Build(ChunkPos{2, -3})

	if got, want := len(c.Vertices), 21*21; got != want {
		t.Fatalf("expected %d vertices, got %d", want, got)
	}
	if got, want := c.Triangles(), 20*20*2; got != want {
		t.Fatalf("expected %d triangles, got %d", want, got)
	}
	first, last := c.Vertex(0, 0).Pos, c.Vertex(20, 20).Pos
	if first[0] != 100 || first[2] != -150 {
		t.Fatalf("expected first vertex at (100, -150), got (%v, %v)", first[0], first[2])
	}
	if last[0] != 150 || last[2] != -100 {
		t.Fatalf("expected last vertex at (150, -100), got (%v, %v)", last[0], last[2])
	}
	if c.Origin != (mgl64.Vec3{100, 0, -150}) {
		t.Fatalf("unexpected origin %v", c.Origin)
	}
	s := b.Sampler()
	for _, v := range c.Vertices {
		if want := s.HeightAt(v.Pos[0], v.Pos[2]); v.Pos[1] != want {
			t.Fatalf("vertex at (%v, %v) has height %v, want %v", v.Pos[0], v.Pos[2], v.Pos[1], want)
		}
		if want := s.Colour(s.Band(s.Normalised(v.Pos[1]))); v.Colour != want {
			t.Fatalf("vertex colour %v does not match band colour %v", v.Colour, want)
		}
	}
}

func TestBuildSeamContinuity(t *testing.T) {
	b := newTestBuilder(t)
	left, right := b.Build(ChunkPos{0, 0}), b.Build(ChunkPos{1, 0})
	n := left.Subdivisions
	for j := 0; j <= n; j++ {
		if l, r := left.Vertex(n, j).Pos, right.Vertex(0, j).Pos; l != r {
			t.Fatalf("row %d: seam mismatch %v != %v", j, l, r)
		}
	}
	down, up := b.Build(ChunkPos{0, -1}), b.Build(ChunkPos{0, 0})
	for i := 0; i <= n; i++ {
		if d, u := down.Vertex(i, n).Pos, up.Vertex(i, 0).Pos; d != u {
			t.Fatalf("column %d: seam mismatch %v != %v", i, d, u)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	a, b := newTestBuilder(t), newTestBuilder(t)
	for _, pos := range []ChunkPos{{0, 0}, {-5, 7}, {63, -64}} {
		if da, db := a.Build(pos).Digest(), b.Build(pos).Digest(); da != db {
			t.Fatalf("chunk %v: digests differ %x != %x", pos, da, db)
		}
	}
	if a.Build(ChunkPos{0, 0}).Digest() == a.Build(ChunkPos{1, 0}).Digest() {
		t.Fatalf("expected different chunks to have different digests")
	}
}

func TestBuildNormals(t *testing.T) {
	c := newTestBuilder(t).Build(ChunkPos{0, 0})
	tilted := false
	for _, v := range c.Vertices {
		if l := v.Normal.Len(); math.Abs(l-1) > 1e-9 {
			t.Fatalf("normal %v is not unit length", v.Normal)
		}
		if v.Normal[1] <= 0 {
			t.Fatalf("normal %v points below the surface", v.Normal)
		}
		if v.Normal != (mgl64.Vec3{0, 1, 0}) {
			tilted = true
		}
	}
	if !tilted {
		t.Fatalf("expected normals to follow the displaced surface")
	}
}

func TestCollisionSurfaceSharesTopology(t *testing.T) {
	c := newTestBuilder(t).Build(ChunkPos{1, 1})
	s := c.Collision
	if len(s.Positions) != len(c.Vertices) || len(s.Indices) != len(c.Indices) {
		t.Fatalf("collision surface topology differs from mesh")
	}
	for i, v := range c.Vertices {
		if s.Positions[i] != v.Pos {
			t.Fatalf("collision position %d differs from vertex", i)
		}
	}
	if s.Bounds != (Rect{MinX: 50, MinZ: 50, MaxX: 100, MaxZ: 100}) {
		t.Fatalf("unexpected bounds %+v", s.Bounds)
	}
}

func TestRaycastDown(t *testing.T) {
	c := newTestBuilder(t).Build(ChunkPos{0, 0})
	for _, ij := range [][2]int{{0, 0}, {5, 7}, {20, 20}, {13, 2}} {
		v := c.Vertex(ij[0], ij[1]).Pos
		hit, ok := c.Collision.Raycast(mgl64.Vec3{v[0], 1000, v[2]}, mgl64.Vec3{0, -1, 0})
		if !ok {
			t.Fatalf("expected ray above vertex %v to hit", v)
		}
		if math.Abs(hit.Point[1]-v[1]) > 1e-6 {
			t.Fatalf("hit height %v, want %v", hit.Point[1], v[1])
		}
	}
	if _, ok := c.Collision.Raycast(mgl64.Vec3{-10, 1000, 10}, mgl64.Vec3{0, -1, 0}); ok {
		t.Fatalf("expected ray outside the chunk to miss")
	}
	if _, ok := c.Collision.Raycast(mgl64.Vec3{10, 1000, 10}, mgl64.Vec3{0, 1, 0}); ok {
		t.Fatalf("expected ray pointing away from the surface to miss")
	}
}

func TestCollisionTouches(t *testing.T) {
	s := &CollisionSurface{Bounds: Rect{MinX: 0, MinZ: 0, MaxX: 50, MaxZ: 50}}
	tests := []struct {
		name  string
		point mgl64.Vec3
		want  bool
	}{
		{"centre", mgl64.Vec3{25, 0, 25}, false},
		{"near left edge", mgl64.Vec3{0.5, 0, 25}, true},
		{"just outside right edge", mgl64.Vec3{50.5, 0, 25}, true},
		{"far outside", mgl64.Vec3{80, 0, 25}, false},
	}
	for _, tt := range tests {
		if got := s.Touches(tt.point, 1); got != tt.want {
			t.Errorf("%s: Touches = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBandMonotonic(t *testing.T) {
	s := NewSampler(noise.New(1, noise.Config{}), DefaultConfig())
	prev := s.Band(-2)
	if prev != BandVoid {
		t.Fatalf("expected lowest band to be void, got %v", prev)
	}
	for h := -2.0; h <= 2; h += 0.01 {
		b := s.Band(h)
		if b < prev {
			t.Fatalf("band decreased from %v to %v at %v", prev, b, h)
		}
		prev = b
	}
	if prev != BandRock {
		t.Fatalf("expected highest band to be rock, got %v", prev)
	}
	tests := map[float64]Band{-0.8: BandVoid, -0.79: BandGrass, 0.29: BandGrass, 0.3: BandDirt, 0.8: BandRock}
	for h, want := range tests {
		if got := s.Band(h); got != want {
			t.Errorf("Band(%v) = %v, want %v", h, got, want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	conf := DefaultConfig()
	conf.Subdivisions = 0
	if err := conf.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for zero subdivisions, got %v", err)
	}
	conf = DefaultConfig()
	conf.SizeZ = -1
	if err := conf.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for negative size, got %v", err)
	}
}

func TestChunkPosAt(t *testing.T) {
	tests := []struct {
		x, z float64
		want ChunkPos
	}{
		{0, 0, ChunkPos{0, 0}},
		{49.9, 50, ChunkPos{0, 1}},
		{-0.1, -50, ChunkPos{-1, -1}},
		{-50.1, 120, ChunkPos{-2, 2}},
	}
	for _, tt := range tests {
		if got := ChunkPosAt(tt.x, tt.z, 50, 50); got != tt.want {
			t.Errorf("ChunkPosAt(%v, %v) = %v, want %v", tt.x, tt.z, got, tt.want)
		}
	}
}
