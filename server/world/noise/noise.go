package noise

import (
	"fmt"
	"strings"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
	"github.com/segmentio/fasthash/fnv1a"
)

const (
	// AlgorithmSimplex layers one OpenSimplex generator per octave.
	AlgorithmSimplex = "simplex"
	// AlgorithmPerlin uses classic Perlin noise with built-in octaves.
	AlgorithmPerlin = "perlin"
)

// Config holds the shape of the fractal noise. The zero value is usable;
// defaults are applied by withDefaults.
type Config struct {
	// Algorithm selects the underlying noise source: "simplex" or "perlin".
	Algorithm string
	// Octaves is the number of noise layers summed together.
	Octaves int
	// Persistence is the amplitude multiplier applied per octave.
	Persistence float64
	// Lacunarity is the frequency multiplier applied per octave.
	Lacunarity float64
}

func (c Config) withDefaults() Config {
	c.Algorithm = strings.ToLower(strings.TrimSpace(c.Algorithm))
	if c.Algorithm == "" {
		c.Algorithm = AlgorithmSimplex
	}
	if c.Octaves <= 0 {
		c.Octaves = 4
	}
	if c.Persistence <= 0 {
		c.Persistence = 0.5
	}
	if c.Lacunarity <= 0 {
		c.Lacunarity = 2
	}
	return c
}

// Validate checks that the configured algorithm is known.
func (c Config) Validate() error {
	switch c.withDefaults().Algorithm {
	case AlgorithmSimplex, AlgorithmPerlin:
		return nil
	}
	return fmt.Errorf("noise: unknown algorithm %q", c.Algorithm)
}

// source is a single 2D noise layer.
type source interface {
	Eval2(x, y float64) float64
}

type perlinSource struct{ p *perlin.Perlin }

func (s perlinSource) Eval2(x, y float64) float64 { return s.p.Noise2D(x, y) }

type octave struct {
	src       source
	frequency float64
	amplitude float64
}

// Field is a deterministic 2D scalar field. A Field never changes after New
// returns, so it may be shared by any number of readers.
type Field struct {
	seed    int64
	conf    Config
	octaves []octave
	norm    float64
}

// New creates a Field for the seed passed. Unknown algorithms fall back to
// simplex; call Config.Validate at startup to reject them instead.
func New(seed int64, conf Config) *Field {
	conf = conf.withDefaults()
	f := &Field{seed: seed, conf: conf}

	if conf.Algorithm == AlgorithmPerlin {
		// go-perlin sums its own octaves: alpha is the inverse persistence
		// and beta the lacunarity.
		p := perlin.NewPerlin(1/conf.Persistence, conf.Lacunarity, int32(conf.Octaves), seed)
		f.octaves = []octave{{src: perlinSource{p: p}, frequency: 1, amplitude: 1}}
		f.norm = 1
		return f
	}

	frequency, amplitude := 1.0, 1.0
	for i := 0; i < conf.Octaves; i++ {
		f.octaves = append(f.octaves, octave{
			src:       opensimplex.New(octaveSeed(seed, i)),
			frequency: frequency,
			amplitude: amplitude,
		})
		f.norm += amplitude
		frequency *= conf.Lacunarity
		amplitude *= conf.Persistence
	}
	return f
}

// octaveSeed derives an independent seed per octave so layers do not line up.
func octaveSeed(seed int64, i int) int64 {
	h := fnv1a.AddUint64(fnv1a.Init64, uint64(seed))
	h = fnv1a.AddUint64(h, uint64(i))
	return int64(h)
}

// Seed returns the seed the Field was created with.
func (f *Field) Seed() int64 {
	return f.seed
}

// Config returns the configuration of the Field with defaults applied.
func (f *Field) Config() Config {
	return f.conf
}

// At returns the value of the field at (x, z). For the simplex algorithm the
// result lies in [-1, 1]. At is a pure function of the seed, the Config and
// the coordinates.
func (f *Field) At(x, z float64) float64 {
	var sum float64
	for _, o := range f.octaves {
		sum += o.src.Eval2(x*o.frequency, z*o.frequency) * o.amplitude
	}
	return sum / f.norm
}
