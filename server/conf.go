package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/orchardguard/tractor/server/observer"
	"github.com/orchardguard/tractor/server/world"
	"github.com/orchardguard/tractor/server/world/ledger"
	"github.com/orchardguard/tractor/server/world/noise"
	"github.com/orchardguard/tractor/server/world/scatter"
	"github.com/orchardguard/tractor/server/world/terrain"
)

// Config contains options for starting a terrain server.
type Config struct {
	// Log is the Logger to use for logging information. If nil, Log is set to
	// slog.Default().
	Log *slog.Logger
	// World holds the settings of the streamed world. World.Log is set to Log
	// if left nil.
	World world.Config
	// Observer holds the settings of the observer stream.
	Observer observer.Config
	// ObserverAddress is the address the observer HTTP endpoints listen on.
	// If empty, Listen does not start an HTTP server.
	ObserverAddress string
	// ExportPath is the snapshot file written by the export command and, if
	// ExportOnClose is set, when the Server closes.
	ExportPath string
	// ExportOnClose specifies if all realised chunks are exported to
	// ExportPath when the Server is closed.
	ExportOnClose bool
}

// New creates a Server using fields of conf. The world is created and the spawn
// area realised immediately; observers may connect after calling
// Server.Listen().
func (conf Config) New() (*Server, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.World.Log == nil {
		conf.World.Log = conf.Log
	}
	if conf.Observer.Log == nil {
		conf.Observer.Log = conf.Log
	}
	if conf.ExportOnClose && conf.ExportPath == "" {
		conf.Log.Warn("config: export on close enabled without a path, nothing will be exported")
	}
	w, err := conf.World.New()
	if err != nil {
		// The world owns the ledger only once it is created.
		if conf.World.Ledger != nil {
			_ = conf.World.Ledger.Close()
		}
		return nil, err
	}
	srv := &Server{
		conf:   conf,
		world:  w,
		start:  time.Now(),
		closed: make(chan struct{}),
	}
	srv.hub = conf.Observer.New(w)
	return srv, nil
}

// UserConfig is the user configuration for a terrain server. It holds the
// constants of the world and the settings of the outer surfaces. UserConfig
// may be serialised and can be converted to a Config by calling
// UserConfig.Config().
type UserConfig struct {
	World struct {
		// Seed drives the noise field and the decoration streams. The same
		// seed always produces the same terrain.
		Seed int64
		// Extent is the number of chunks along each side of the streaming grid.
		Extent int
		// SpawnRadius is the radius in chunks realised around the origin at
		// startup.
		SpawnRadius int
		// TickRate is the number of world ticks per second.
		TickRate int
	}
	Noise struct {
		// Algorithm is either "simplex" or "perlin".
		Algorithm   string
		Octaves     int
		Persistence float64
		Lacunarity  float64
	}
	Terrain struct {
		// ChunkSize is the world-space width and depth of a chunk.
		ChunkSize float64
		// Subdivisions is the number of quads along each side of a chunk.
		Subdivisions int
		MaxHeight    float64
		// Scale converts world coordinates to noise coordinates.
		Scale                                       float64
		RockThreshold, DirtThreshold, VoidThreshold float64
	}
	Scatter struct {
		// Count is the number of decoration candidates per chunk. 0 disables
		// scenery.
		Count      int
		TreeChance float64
		// ExclusionRadius is the minimum distance between two decorations.
		ExclusionRadius float64
		// PlayableHalfSize is the half width of the square around the origin
		// kept free of scenery.
		PlayableHalfSize float64
	}
	Observer struct {
		// Address is the address the observer endpoints listen on. Leave
		// empty to disable them.
		Address string
		// AllowRemote permits observers from non-loopback addresses.
		AllowRemote bool
	}
	Ledger struct {
		// Enabled controls if realised chunks are recorded in a SQLite ledger.
		Enabled bool
		// File is the path of the SQLite database.
		File string
	}
	Export struct {
		// File is the default snapshot file.
		File string
		// OnShutdown exports all realised chunks to File when the server stops.
		OnShutdown bool
	}
}

// Config converts a UserConfig to a Config, so that it may be used for creating
// a Server. An error is returned if the terrain constants are invalid or the
// ledger could not be opened.
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	if log == nil {
		log = slog.Default()
	}
	tc := terrain.DefaultConfig()
	tc.SizeX, tc.SizeZ = uc.Terrain.ChunkSize, uc.Terrain.ChunkSize
	tc.Subdivisions = uc.Terrain.Subdivisions
	tc.MaxHeight = uc.Terrain.MaxHeight
	tc.Scale = uc.Terrain.Scale
	tc.RockThreshold = uc.Terrain.RockThreshold
	tc.DirtThreshold = uc.Terrain.DirtThreshold
	tc.VoidThreshold = uc.Terrain.VoidThreshold
	if err := tc.Validate(); err != nil {
		return Config{}, fmt.Errorf("terrain: %w", err)
	}
	nc := noise.Config{
		Algorithm:   uc.Noise.Algorithm,
		Octaves:     uc.Noise.Octaves,
		Persistence: uc.Noise.Persistence,
		Lacunarity:  uc.Noise.Lacunarity,
	}
	if err := nc.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	half := uc.Scatter.PlayableHalfSize
	sc := scatter.Config{
		Count:           uc.Scatter.Count,
		TreeChance:      uc.Scatter.TreeChance,
		ExclusionRadius: uc.Scatter.ExclusionRadius,
		Playable:        terrain.Rect{MinX: -half, MinZ: -half, MaxX: half, MaxZ: half},
	}

	conf := Config{
		Log: log,
		World: world.Config{
			Log:         log,
			Seed:        uc.World.Seed,
			Noise:       nc,
			Terrain:     tc,
			Scatter:     sc,
			Extent:      uc.World.Extent,
			SpawnRadius: uc.World.SpawnRadius,
		},
		Observer:        observer.Config{Log: log, AllowRemote: uc.Observer.AllowRemote},
		ObserverAddress: uc.Observer.Address,
		ExportPath:      uc.Export.File,
		ExportOnClose:   uc.Export.OnShutdown,
	}
	if uc.World.TickRate > 0 {
		conf.World.TickInterval = time.Second / time.Duration(uc.World.TickRate)
	}
	if uc.Ledger.Enabled {
		l, err := ledger.Open(ledger.Config{Path: uc.Ledger.File, Log: log})
		if err != nil {
			return conf, fmt.Errorf("create ledger: %w", err)
		}
		conf.World.Ledger = l
	}
	return conf, nil
}

// DefaultConfig returns a configuration with the default values filled out.
func DefaultConfig() UserConfig {
	tc := terrain.DefaultConfig()
	sc := scatter.DefaultConfig()

	c := UserConfig{}
	c.World.Seed = 1135
	c.World.Extent = 128
	c.World.SpawnRadius = 0
	c.World.TickRate = 20
	c.Noise.Algorithm = noise.AlgorithmSimplex
	c.Noise.Octaves = 4
	c.Noise.Persistence = 0.5
	c.Noise.Lacunarity = 2
	c.Terrain.ChunkSize = tc.SizeX
	c.Terrain.Subdivisions = tc.Subdivisions
	c.Terrain.MaxHeight = tc.MaxHeight
	c.Terrain.Scale = tc.Scale
	c.Terrain.RockThreshold = tc.RockThreshold
	c.Terrain.DirtThreshold = tc.DirtThreshold
	c.Terrain.VoidThreshold = tc.VoidThreshold
	c.Scatter.Count = sc.Count
	c.Scatter.TreeChance = sc.TreeChance
	c.Scatter.ExclusionRadius = sc.ExclusionRadius
	c.Scatter.PlayableHalfSize = sc.Playable.MaxX
	c.Observer.Address = "127.0.0.1:8787"
	c.Ledger.Enabled = true
	c.Ledger.File = "data/ledger.sqlite"
	c.Export.File = "data/terrain.snap.zst"
	return c
}
