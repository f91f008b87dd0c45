package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rect is an axis aligned rectangle on the XZ plane. Bounds are inclusive.
type Rect struct {
	MinX, MinZ, MaxX, MaxZ float64
}

// Contains checks if (x, z) lies within the rectangle.
func (r Rect) Contains(x, z float64) bool {
	return x >= r.MinX && x <= r.MaxX && z >= r.MinZ && z <= r.MaxZ
}

// Empty checks if the rectangle has no area.
func (r Rect) Empty() bool {
	return r.MaxX <= r.MinX || r.MaxZ <= r.MinZ
}

// Hit is the result of a ray cast against a collision surface.
type Hit struct {
	Point    mgl64.Vec3
	Distance float64
	Triangle int
}

// CollisionSurface is the geometric description of a chunk handed to the
// physics collaborator. It carries the exact topology of the render mesh so
// that ground queries agree with what is drawn.
type CollisionSurface struct {
	Positions []mgl64.Vec3
	Indices   []uint32
	// Bounds is the XZ extent of the chunk. Its edges form the boundary
	// collider that produces boundary-touch events.
	Bounds     Rect
	MinY, MaxY float64
}

// Raycast returns the first point where the ray from origin along dir hits
// the surface. dir need not be normalised, but must not be zero.
func (s *CollisionSurface) Raycast(origin, dir mgl64.Vec3) (Hit, bool) {
	if dir.Len() == 0 {
		return Hit{}, false
	}
	dir = dir.Normalize()
	if dir[0] == 0 && dir[2] == 0 && !s.Bounds.Contains(origin[0], origin[2]) {
		return Hit{}, false
	}
	best := Hit{Distance: math.Inf(1), Triangle: -1}
	for t := 0; t+2 < len(s.Indices); t += 3 {
		a, b, c := s.Positions[s.Indices[t]], s.Positions[s.Indices[t+1]], s.Positions[s.Indices[t+2]]
		if d, ok := intersect(origin, dir, a, b, c); ok && d < best.Distance {
			best = Hit{Point: origin.Add(dir.Mul(d)), Distance: d, Triangle: t / 3}
		}
	}
	return best, best.Triangle >= 0
}

// Touches checks if an agent at point with the radius passed reaches the
// outer edge collider of the surface.
func (s *CollisionSurface) Touches(point mgl64.Vec3, radius float64) bool {
	x, z := point[0], point[2]
	b := s.Bounds
	if !(Rect{b.MinX - radius, b.MinZ - radius, b.MaxX + radius, b.MaxZ + radius}).Contains(x, z) {
		return false
	}
	edge := math.Min(math.Min(math.Abs(x-b.MinX), math.Abs(x-b.MaxX)), math.Min(math.Abs(z-b.MinZ), math.Abs(z-b.MaxZ)))
	return edge <= radius
}

const (
	rayEpsilon = 1e-12
	// edgeEpsilon widens triangles slightly so rays on shared edges and chunk
	// seams are not lost to rounding.
	edgeEpsilon = 1e-9
)

// intersect implements the Möller-Trumbore ray/triangle test, returning the
// distance along dir to the hit point.
func intersect(origin, dir, a, b, c mgl64.Vec3) (float64, bool) {
	e1, e2 := b.Sub(a), c.Sub(a)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < rayEpsilon {
		return 0, false
	}
	inv := 1 / det
	s := origin.Sub(a)
	u := s.Dot(p) * inv
	if u < -edgeEpsilon || u > 1+edgeEpsilon {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < -edgeEpsilon || u+v > 1+edgeEpsilon {
		return 0, false
	}
	d := e2.Dot(q) * inv
	if d < 0 {
		return 0, false
	}
	return d, true
}
