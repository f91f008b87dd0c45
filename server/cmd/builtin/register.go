package builtin

import (
	"time"

	"github.com/orchardguard/tractor/server/cmd"
	"github.com/orchardguard/tractor/server/world"
)

type serverAdapter interface {
	World() *world.World
	StartTime() time.Time
	// ExportPath is the default file written by the export command.
	ExportPath() string
	Close() error
}

// Register registers the built-in command set on the provided server.
func Register(srv serverAdapter) {
	cmd.Register(newHelpCommand())
	cmd.Register(newStatusCommand(srv))
	cmd.Register(newGCCommand(srv))
	cmd.Register(newStopCommand(srv))
	cmd.Register(newTouchCommand())
	cmd.Register(newBuildCommand())
	cmd.Register(newNeighboursCommand())
	cmd.Register(newHeightCommand())
	cmd.Register(newGroundCommand())
	cmd.Register(newExportCommand(srv))
}
