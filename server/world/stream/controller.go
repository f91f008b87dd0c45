package stream

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

type ControllerConfig struct {
	Logger  *slog.Logger
	Grid    *Grid
	Metrics *Metrics
}

// Controller expands the grid around chunks whose boundary was touched. Events
// may be queued from any goroutine; Tick must only be called from the world
// update step.
type Controller struct {
	log     *slog.Logger
	grid    *Grid
	metrics *Metrics

	mu      sync.Mutex
	pending []BoundaryTouch
	// drained is swapped with pending every tick to reuse its backing array.
	drained []BoundaryTouch

	state atomic.Uint32
}

func NewController(cfg ControllerConfig) *Controller {
	if cfg.Grid == nil {
		panic("stream: controller requires grid")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		log:     cfg.Logger,
		grid:    cfg.Grid,
		metrics: cfg.Metrics,
	}
}

// Queue schedules a boundary event to be resolved by the next Tick.
func (c *Controller) Queue(ev BoundaryTouch) {
	c.mu.Lock()
	c.pending = append(c.pending, ev)
	c.mu.Unlock()
}

// Pending returns the number of events waiting for the next Tick.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// State returns the phase the Controller is currently in. Outside of Tick it
// is always StateIdle.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Tick drains every pending event and realises the ungenerated neighbours of
// each touched chunk. Realisation completes before Tick returns, so the new
// collision surfaces exist before the next physics step. The columns realised
// are returned in the order they were built.
func (c *Controller) Tick(tick int64) []*Column {
	c.mu.Lock()
	events := c.pending
	c.pending, c.drained = c.drained[:0], nil
	c.mu.Unlock()

	if len(events) == 0 {
		c.drained = events
		return nil
	}
	c.grid.setTick(tick)

	var built []*Column
	for _, ev := range events {
		c.metrics.IncEvents()
		c.state.Store(uint32(StateResolving))
		if !c.grid.IsBuilt(ev.Chunk) {
			// Either outside the extent or a chunk we never realised.
			c.metrics.IncDropped()
			c.log.Debug("boundary event dropped", "agent", ev.Agent, "x", ev.Chunk[0], "z", ev.Chunk[1])
			continue
		}
		neighbours := c.grid.UngeneratedNeighbours(ev.Chunk)

		c.state.Store(uint32(StateExpanding))
		for _, pos := range neighbours {
			if col, ok := c.grid.Build(pos); ok {
				built = append(built, col)
			}
		}
	}
	c.state.Store(uint32(StateIdle))

	clear(events)
	c.drained = events[:0]
	return built
}
