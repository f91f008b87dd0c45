package builtin

import (
	"runtime"

	"github.com/orchardguard/tractor/server/cmd"
	"github.com/orchardguard/tractor/server/world"
)

type gcCommand struct{}

func newGCCommand(_ serverAdapter) cmd.Command {
	return cmd.New("gc", "Triggers a Go garbage collection cycle.", "", nil, gcCommand{})
}

func (gcCommand) Run(_ []string, _ cmd.Source, o *cmd.Output, tx *world.Tx) {
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	runtime.GC()

	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	freedBytes := uint64(0)
	if before.HeapAlloc > after.HeapAlloc {
		freedBytes = before.HeapAlloc - after.HeapAlloc
	}

	o.Print("---- Garbage collection result ----")
	// Realised chunks are never released, so they bound what a cycle can free.
	o.Printf("Chunks retained: %d", tx.World().ChunkCount())
	o.Printf("Heap memory freed: %.2f MiB (current heap %.2f MiB)", bytesToMiB(freedBytes), bytesToMiB(after.HeapAlloc))
}
