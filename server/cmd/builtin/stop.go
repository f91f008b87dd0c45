package builtin

import (
	"github.com/orchardguard/tractor/server/cmd"
	"github.com/orchardguard/tractor/server/world"
)

type stopCommand struct {
	srv serverAdapter
}

func newStopCommand(srv serverAdapter) cmd.Command {
	return cmd.New("stop", "Stops the server.", "", nil, stopCommand{srv: srv})
}

func (s stopCommand) Run(_ []string, _ cmd.Source, o *cmd.Output, _ *world.Tx) {
	o.Print("Stopping server...")
	// Closing waits for the world goroutine, which is running this command.
	go func() { _ = s.srv.Close() }()
}
