package builtin

import (
	"github.com/orchardguard/tractor/server/cmd"
	"github.com/orchardguard/tractor/server/world"
	"github.com/orchardguard/tractor/server/world/export"
)

type exportCommand struct {
	srv serverAdapter
}

func newExportCommand(srv serverAdapter) cmd.Command {
	return cmd.New("export", "Writes every realised chunk to a snapshot file.", "[file]", nil, exportCommand{srv: srv})
}

func (e exportCommand) Run(args []string, _ cmd.Source, o *cmd.Output, tx *world.Tx) {
	path := e.srv.ExportPath()
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		o.Errorf(cmd.MessageUsage, "/export <file>")
		return
	}
	snap := export.CaptureTx(tx)
	if err := export.Write(path, snap); err != nil {
		o.Errorf("Export failed: %v", err)
		return
	}
	o.Printf("Exported %d chunks to %v.", snap.Header.Chunks, path)
}
