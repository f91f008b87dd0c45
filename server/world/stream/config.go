package stream

import (
	"log/slog"

	"github.com/orchardguard/tractor/server/world/scatter"
	"github.com/orchardguard/tractor/server/world/terrain"
)

// Config holds the tunable parameters of the streaming system. Builder is
// required; defaults are applied to the rest by withDefaults.
type Config struct {
	Builder   *terrain.Builder
	Scatterer *scatter.Scatterer
	// Extent is the number of grid cells along each side.
	Extent int
	// Seed seeds the per-chunk decoration streams.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.Extent <= 0 {
		c.Extent = 128
	}
	if c.Scatterer == nil {
		c.Scatterer = scatter.New(scatter.DefaultConfig())
	}
	return c
}

// New builds a System using the configuration and the logger passed.
func (c Config) New(log *slog.Logger) *System {
	c = c.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	metrics := NewMetrics()
	grid := NewGrid(GridConfig{
		Logger:    log,
		Builder:   c.Builder,
		Scatterer: c.Scatterer,
		Metrics:   metrics,
		Extent:    c.Extent,
		Seed:      c.Seed,
	})
	return &System{
		grid:       grid,
		controller: NewController(ControllerConfig{Logger: log, Grid: grid, Metrics: metrics}),
		metrics:    metrics,
	}
}

// System ties the grid and the controller together for use by the world.
type System struct {
	grid       *Grid
	controller *Controller
	metrics    *Metrics
}

// Grid returns the occupancy grid of the System.
func (s *System) Grid() *Grid {
	return s.grid
}

// Controller returns the streaming controller of the System.
func (s *System) Controller() *Controller {
	return s.controller
}

// Metrics returns the counters shared by the grid and the controller.
func (s *System) Metrics() *Metrics {
	return s.metrics
}

// Queue schedules a boundary event for the next Step.
func (s *System) Queue(ev BoundaryTouch) {
	s.controller.Queue(ev)
}

// Step runs the controller for the tick passed and returns the columns
// realised.
func (s *System) Step(tick int64) []*Column {
	return s.controller.Tick(tick)
}
