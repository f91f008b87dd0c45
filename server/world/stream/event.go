package stream

import (
	"github.com/google/uuid"
	"github.com/orchardguard/tractor/server/world/terrain"
)

// BoundaryTouch is emitted by the physics collaborator when a tracked agent's
// collider reaches the outer edge of a chunk's collision surface.
type BoundaryTouch struct {
	// Agent identifies the tracked agent that touched the boundary.
	Agent uuid.UUID
	// Chunk is the grid position of the chunk whose boundary was touched.
	Chunk terrain.ChunkPos
}

// State enumerates the phases of a Controller tick.
type State uint32

const (
	StateIdle State = iota
	StateResolving
	StateExpanding
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateExpanding:
		return "expanding"
	}
	return "unknown"
}
