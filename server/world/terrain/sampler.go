package terrain

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/orchardguard/tractor/server/world/noise"
)

// Sampler turns a noise field into world-space terrain elevation.
type Sampler struct {
	field *noise.Field
	conf  Config
}

// NewSampler creates a Sampler reading from the field passed.
func NewSampler(field *noise.Field, conf Config) *Sampler {
	return &Sampler{field: field, conf: conf}
}

// HeightAt returns the terrain elevation at the world coordinates (x, z).
func (s *Sampler) HeightAt(x, z float64) float64 {
	return s.field.At(x*s.conf.Scale, z*s.conf.Scale) * s.conf.MaxHeight
}

// Normalised returns h relative to the configured maximum height.
func (s *Sampler) Normalised(h float64) float64 {
	return h / s.conf.MaxHeight
}

// Band buckets a normalised height into an altitude band.
func (s *Sampler) Band(normalised float64) Band {
	switch {
	case normalised >= s.conf.RockThreshold:
		return BandRock
	case normalised >= s.conf.DirtThreshold:
		return BandDirt
	case normalised <= s.conf.VoidThreshold:
		return BandVoid
	}
	return BandGrass
}

// Colour returns the vertex colour configured for a band.
func (s *Sampler) Colour(b Band) mgl64.Vec4 {
	if int(b) >= len(s.conf.Colours) {
		return mgl64.Vec4{1, 0, 1, 1}
	}
	return s.conf.Colours[b]
}

// Config returns the terrain constants of the Sampler.
func (s *Sampler) Config() Config {
	return s.conf
}
