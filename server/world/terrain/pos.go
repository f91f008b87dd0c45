package terrain

import (
	"fmt"
	"math"
)

// ChunkPos holds the position of a chunk on the streaming grid. The first
// element is the X coordinate, the second the Z coordinate.
type ChunkPos [2]int32

// X returns the X coordinate of the chunk position.
func (p ChunkPos) X() int32 {
	return p[0]
}

// Z returns the Z coordinate of the chunk position.
func (p ChunkPos) Z() int32 {
	return p[1]
}

// Add returns the position offset by dx and dz.
func (p ChunkPos) Add(dx, dz int32) ChunkPos {
	return ChunkPos{p[0] + dx, p[1] + dz}
}

// String implements fmt.Stringer.
func (p ChunkPos) String() string {
	return fmt.Sprintf("(%d, %d)", p[0], p[1])
}

// ChunkPosAt returns the position of the chunk that covers the world
// coordinates (x, z) for chunks of the size passed.
func ChunkPosAt(x, z, sizeX, sizeZ float64) ChunkPos {
	return ChunkPos{int32(math.Floor(x / sizeX)), int32(math.Floor(z / sizeZ))}
}
