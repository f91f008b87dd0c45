package world

import "github.com/orchardguard/tractor/server/world/stream"

// Handler handles events that are called by a world. Implementations of
// Handler may be used to listen to specific events such as the realisation of
// a chunk.
type Handler interface {
	// HandleChunkRealise handles a chunk being realised by the streaming
	// system. col holds the chunk and its decorations and must not be
	// modified.
	HandleChunkRealise(tx *Tx, col *stream.Column)
	// HandleClose handles the World being closed. HandleClose may be used as a
	// moment to finish code running on other goroutines that operates on the
	// World specifically. HandleClose is called directly before the World
	// stops ticking and before any chunks are discarded.
	HandleClose(tx *Tx)
}

// Compile time check to make sure NopHandler implements Handler.
var _ Handler = (*NopHandler)(nil)

// nopHandler is the Handler stored when none is set.
var nopHandler Handler = NopHandler{}

// NopHandler implements the Handler interface but does not execute any code
// when an event is called. The default Handler of worlds is set to NopHandler.
// Users may embed NopHandler to avoid having to implement each method.
type NopHandler struct{}

func (NopHandler) HandleChunkRealise(*Tx, *stream.Column) {}
func (NopHandler) HandleClose(*Tx)                        {}
