package world

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/orchardguard/tractor/server/world/noise"
	"github.com/orchardguard/tractor/server/world/scatter"
	"github.com/orchardguard/tractor/server/world/stream"
	"github.com/orchardguard/tractor/server/world/terrain"
)

// Config may be used to create a new World. It holds the constants that are
// loaded once at startup and never re-derived.
type Config struct {
	// Log is the Logger that will be used to log errors and debug messages to.
	// If set to nil, slog.Default() is used.
	Log *slog.Logger
	// Seed is the world seed shared by the noise field and decoration
	// streams.
	Seed int64
	// Noise shapes the fractal noise the terrain is sampled from.
	Noise noise.Config
	// Terrain holds chunk size, subdivisions and altitude bands. If left as
	// the zero value, terrain.DefaultConfig() is used.
	Terrain terrain.Config
	// Scatter holds the decoration constants. If Scatter.Count is 0 no
	// scenery is placed.
	Scatter scatter.Config
	// Extent is the number of grid cells along each side of the streaming
	// grid. If 0, 128 is used.
	Extent int
	// SpawnRadius is the radius in chunks around the origin that is realised
	// when the World is created. The origin chunk is always realised.
	SpawnRadius int
	// TickInterval is the time between two world ticks. If 0, the world ticks
	// 20 times per second. A negative value disables automatic ticking, in
	// which case Tick must be called manually.
	TickInterval time.Duration
	// Ledger records every realised chunk. If nil, NopLedger is used.
	Ledger Ledger
}

// New creates a new World using the Config conf. An error is returned if the
// terrain or noise constants are invalid.
func (conf Config) New() (*World, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Terrain == (terrain.Config{}) {
		conf.Terrain = terrain.DefaultConfig()
	}
	if conf.Extent <= 0 {
		conf.Extent = 128
	}
	if conf.TickInterval == 0 {
		conf.TickInterval = time.Second / 20
	}
	if conf.Ledger == nil {
		conf.Ledger = NopLedger{}
	}
	if err := conf.Terrain.Validate(); err != nil {
		return nil, fmt.Errorf("create world: %w", err)
	}
	if err := conf.Noise.Validate(); err != nil {
		return nil, fmt.Errorf("create world: %w", err)
	}

	field := noise.New(conf.Seed, conf.Noise)
	sampler := terrain.NewSampler(field, conf.Terrain)
	sys := stream.Config{
		Builder:   terrain.NewBuilder(sampler),
		Scatterer: scatter.New(conf.Scatter),
		Extent:    conf.Extent,
		Seed:      conf.Seed,
	}.New(conf.Log)

	w := &World{
		conf:         conf,
		sampler:      sampler,
		stream:       sys,
		queue:        make(chan transaction),
		queueClosing: make(chan struct{}),
		closing:      make(chan struct{}),
	}
	w.handler.Store(&nopHandler)
	w.realiseSpawn()

	w.queueing.Add(1)
	go w.handleTransactions()
	if conf.TickInterval > 0 {
		w.running.Add(1)
		go ticker{interval: conf.TickInterval}.tickLoop(w)
	}
	return w, nil
}
