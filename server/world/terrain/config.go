package terrain

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidConfig is returned by Config.Validate when a construction-time
// constant is out of range.
var ErrInvalidConfig = errors.New("terrain: invalid config")

// Config contains the constants used to sample heights and build chunk
// meshes. They are validated once at startup through Validate and never per
// build.
type Config struct {
	// SizeX and SizeZ are the world-space extents of a single chunk.
	SizeX, SizeZ float64
	// Subdivisions is the number of quads along each side of a chunk. A chunk
	// has (Subdivisions+1)^2 vertices.
	Subdivisions int
	// MaxHeight is the amplitude applied to the noise field. Heights are
	// normalised against it before banding.
	MaxHeight float64
	// Scale converts world coordinates to noise coordinates.
	Scale float64
	// RockThreshold, DirtThreshold and VoidThreshold bucket normalised heights
	// into altitude bands.
	RockThreshold, DirtThreshold, VoidThreshold float64
	// Colours holds the vertex colour used for each band, indexed by Band.
	Colours [bandCount]mgl64.Vec4
}

// DefaultConfig returns the terrain constants used by the game.
func DefaultConfig() Config {
	return Config{
		SizeX:         50,
		SizeZ:         50,
		Subdivisions:  20,
		MaxHeight:     10,
		Scale:         0.01,
		RockThreshold: 0.8,
		DirtThreshold: 0.3,
		VoidThreshold: -0.8,
		Colours: [bandCount]mgl64.Vec4{
			BandVoid:  {0, 0, 0, 1},
			BandGrass: {0.22, 0.55, 0.18, 1},
			BandDirt:  {0.45, 0.32, 0.2, 1},
			BandRock:  {0.5, 0.5, 0.52, 1},
		},
	}
}

// Validate reports an error wrapping ErrInvalidConfig if the config cannot be
// used to build chunks.
func (c Config) Validate() error {
	switch {
	case c.SizeX <= 0 || c.SizeZ <= 0:
		return fmt.Errorf("%w: chunk size must be positive, got %vx%v", ErrInvalidConfig, c.SizeX, c.SizeZ)
	case c.Subdivisions <= 0:
		return fmt.Errorf("%w: subdivisions must be positive, got %d", ErrInvalidConfig, c.Subdivisions)
	case c.MaxHeight <= 0:
		return fmt.Errorf("%w: max height must be positive, got %v", ErrInvalidConfig, c.MaxHeight)
	case c.Scale <= 0:
		return fmt.Errorf("%w: scale must be positive, got %v", ErrInvalidConfig, c.Scale)
	case c.DirtThreshold > c.RockThreshold:
		return fmt.Errorf("%w: dirt threshold %v above rock threshold %v", ErrInvalidConfig, c.DirtThreshold, c.RockThreshold)
	case c.VoidThreshold >= c.DirtThreshold:
		return fmt.Errorf("%w: void threshold %v not below dirt threshold %v", ErrInvalidConfig, c.VoidThreshold, c.DirtThreshold)
	}
	return nil
}
