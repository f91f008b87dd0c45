package builtin

import (
	"github.com/orchardguard/tractor/server/cmd"
	"github.com/orchardguard/tractor/server/world"
	"github.com/orchardguard/tractor/server/world/scatter"
	"github.com/orchardguard/tractor/server/world/stream"
)

type touchCommand struct{}

func newTouchCommand() cmd.Command {
	return cmd.New("touch", "Reports a boundary touch on a realised chunk.", "<x> <z>", nil, touchCommand{})
}

func (touchCommand) Run(args []string, src cmd.Source, o *cmd.Output, tx *world.Tx) {
	pos, err := parseChunk(args)
	if err != nil {
		o.Error(err)
		return
	}
	agent := sourceAgent(src)
	tx.Touch(stream.BoundaryTouch{Agent: agent, Chunk: pos})
	if !tx.IsBuilt(pos) {
		o.Printf("Chunk %v is not realised; the event will be dropped.", pos)
		return
	}
	o.Printf("Boundary touch on %v by %v queued for the next tick.", pos, agent)
}

type buildCommand struct{}

func newBuildCommand() cmd.Command {
	return cmd.New("build", "Realises a chunk immediately.", "<x> <z>", nil, buildCommand{})
}

func (buildCommand) Run(args []string, _ cmd.Source, o *cmd.Output, tx *world.Tx) {
	pos, err := parseChunk(args)
	if err != nil {
		o.Error(err)
		return
	}
	col, ok := tx.Build(pos)
	if !ok {
		if tx.IsBuilt(pos) {
			o.Printf("Chunk %v is already realised.", pos)
		} else {
			o.Errorf("Chunk %v lies outside the grid extent.", pos)
		}
		return
	}
	trees, rocks := countKinds(col.Decorations)
	lo, hi := col.Chunk.HeightRange()
	o.Printf("Realised chunk %v: %d vertices, %d trees, %d rocks, height %.2f to %.2f.", pos, len(col.Chunk.Vertices), trees, rocks, lo, hi)
}

type neighboursCommand struct{}

func newNeighboursCommand() cmd.Command {
	return cmd.New("neighbours", "Lists the unrealised neighbours of a chunk.", "<x> <z>", []string{"neighbors"}, neighboursCommand{})
}

func (neighboursCommand) Run(args []string, _ cmd.Source, o *cmd.Output, tx *world.Tx) {
	pos, err := parseChunk(args)
	if err != nil {
		o.Error(err)
		return
	}
	n := tx.Neighbours(pos)
	if len(n) == 0 {
		o.Printf("Chunk %v has no unrealised neighbours.", pos)
		return
	}
	o.Printf("Unrealised neighbours of %v: %v", pos, n)
}

type heightCommand struct{}

func newHeightCommand() cmd.Command {
	return cmd.New("height", "Samples the terrain height at world coordinates.", "<x> <z>", nil, heightCommand{})
}

func (heightCommand) Run(args []string, _ cmd.Source, o *cmd.Output, tx *world.Tx) {
	x, z, err := parseCoords(args)
	if err != nil {
		o.Error(err)
		return
	}
	o.Printf("Height at (%.2f, %.2f): %.4f", x, z, tx.HeightAt(x, z))
}

type groundCommand struct{}

func newGroundCommand() cmd.Command {
	return cmd.New("ground", "Casts a ray down onto realised terrain.", "<x> <z>", nil, groundCommand{})
}

func (groundCommand) Run(args []string, _ cmd.Source, o *cmd.Output, tx *world.Tx) {
	x, z, err := parseCoords(args)
	if err != nil {
		o.Error(err)
		return
	}
	p, ok := tx.GroundAt(x, z)
	if !ok {
		o.Errorf("No realised ground below (%.2f, %.2f).", x, z)
		return
	}
	o.Printf("Ground at (%.2f, %.4f, %.2f)", p[0], p[1], p[2])
}

func countKinds(points []scatter.Point) (trees, rocks int) {
	for _, p := range points {
		if p.Kind == scatter.KindRock {
			rocks++
		} else {
			trees++
		}
	}
	return trees, rocks
}
