package cmd

import (
	"strings"

	"github.com/orchardguard/tractor/server/world"
)

// Runnable is the body of a Command. Run is called on the world goroutine
// with the arguments following the command name.
type Runnable interface {
	Run(args []string, src Source, o *Output, tx *world.Tx)
}

// Allower may be implemented by a Runnable to limit the sources that may run
// it.
type Allower interface {
	Allow(src Source) bool
}

// Command is a named Runnable with a description and usage line used by the
// help command.
type Command struct {
	name        string
	description string
	usage       string
	aliases     []string
	r           Runnable
}

// New returns a new Command using the name, description, usage and aliases
// passed. usage lists the arguments, for example "<x> <z>".
func New(name, description, usage string, aliases []string, r Runnable) Command {
	if r == nil {
		panic("cmd.New: runnable must not be nil")
	}
	return Command{
		name:        strings.ToLower(name),
		description: description,
		usage:       usage,
		aliases:     aliases,
		r:           r,
	}
}

// Name returns the name of the command.
func (cmd Command) Name() string { return cmd.name }

// Description returns the description of the command.
func (cmd Command) Description() string { return cmd.description }

// Aliases returns the aliases of the command, not including its name.
func (cmd Command) Aliases() []string { return cmd.aliases }

// Usage returns a line describing how the command is used.
func (cmd Command) Usage() string {
	if cmd.usage == "" {
		return "/" + cmd.name
	}
	return "/" + cmd.name + " " + cmd.usage
}

// Allowed checks if src may run the command.
func (cmd Command) Allowed(src Source) bool {
	if a, ok := cmd.r.(Allower); ok {
		return a.Allow(src)
	}
	return true
}

// Execute runs the command with the argument string passed on behalf of src
// and sends the output back to it.
func (cmd Command) Execute(args string, src Source, tx *world.Tx) {
	o := &Output{}
	defer src.SendCommandOutput(o)
	if !cmd.Allowed(src) {
		o.Errort(MessagePermission, cmd.name)
		return
	}
	cmd.r.Run(strings.Fields(args), src, o, tx)
}
