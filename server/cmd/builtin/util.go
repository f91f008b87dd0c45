package builtin

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/orchardguard/tractor/server/cmd"
	"github.com/orchardguard/tractor/server/world/terrain"
)

type namedSource interface {
	Name() string
}

// sourceName returns a user facing name for the source invoking a command.
func sourceName(src cmd.Source) string {
	if n, ok := src.(namedSource); ok {
		return n.Name()
	}
	return "Server"
}

// sourceAgent returns the agent ID of the source. Sources without an ID of
// their own get one derived from their name, stable across runs.
func sourceAgent(src cmd.Source) uuid.UUID {
	if a, ok := src.(cmd.Agent); ok {
		return a.Agent()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("tractor/"+sourceName(src)))
}

// parseChunk parses two integer grid coordinates.
func parseChunk(args []string) (terrain.ChunkPos, error) {
	if len(args) != 2 {
		return terrain.ChunkPos{}, fmt.Errorf("expected 2 arguments, got %d", len(args))
	}
	x, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return terrain.ChunkPos{}, fmt.Errorf("invalid chunk x %q", args[0])
	}
	z, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		return terrain.ChunkPos{}, fmt.Errorf("invalid chunk z %q", args[1])
	}
	return terrain.ChunkPos{int32(x), int32(z)}, nil
}

// parseCoords parses two world coordinates on the XZ plane.
func parseCoords(args []string) (x, z float64, err error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected 2 arguments, got %d", len(args))
	}
	if x, err = strconv.ParseFloat(args[0], 64); err != nil {
		return 0, 0, fmt.Errorf("invalid x %q", args[0])
	}
	if z, err = strconv.ParseFloat(args[1], 64); err != nil {
		return 0, 0, fmt.Errorf("invalid z %q", args[1])
	}
	return x, z, nil
}

func bytesToMiB(v uint64) float64 {
	return float64(v) / (1024 * 1024)
}
