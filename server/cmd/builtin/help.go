package builtin

import (
	"sort"
	"strings"

	"github.com/orchardguard/tractor/server/cmd"
	"github.com/orchardguard/tractor/server/world"
)

type helpCommand struct{}

func newHelpCommand() cmd.Command {
	return cmd.New("help", "Shows available commands and their usage.", "[command]", []string{"?"}, helpCommand{})
}

func (helpCommand) Run(args []string, src cmd.Source, o *cmd.Output, _ *world.Tx) {
	if len(args) > 0 {
		name := strings.ToLower(strings.TrimPrefix(args[0], "/"))
		command, found := cmd.ByAlias(name)
		if !found || !command.Allowed(src) {
			o.Errort(cmd.MessageUnknown, name)
			return
		}
		if desc := command.Description(); desc != "" {
			o.Print(desc)
		}
		o.Printf(cmd.MessageUsage, command.Usage())
		return
	}

	commands := cmd.Commands()
	names := make([]string, 0, len(commands))
	for alias, command := range commands {
		if command.Name() != alias || !command.Allowed(src) {
			continue
		}
		names = append(names, alias)
	}
	if len(names) == 0 {
		o.Print("No commands available.")
		return
	}
	sort.Strings(names)

	o.Printf("Available commands (%d):", len(names))
	for _, name := range names {
		command, _ := cmd.ByAlias(name)
		line := command.Usage()
		if desc := command.Description(); desc != "" {
			line += " - " + desc
		}
		o.Print(line)
	}
}
