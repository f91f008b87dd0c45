package cmd

import (
	"maps"
	"strings"
	"sync"
)

var (
	commandMu sync.RWMutex
	commands  = map[string]Command{}
)

// Register registers a command with its name and all aliases that it has. Any
// command with the same name or aliases will be overwritten.
func Register(command Command) {
	commandMu.Lock()
	defer commandMu.Unlock()

	commands[command.name] = command
	for _, alias := range command.aliases {
		commands[strings.ToLower(alias)] = command
	}
}

// ByAlias looks up a command by an alias or its name.
func ByAlias(alias string) (Command, bool) {
	commandMu.RLock()
	defer commandMu.RUnlock()

	command, ok := commands[strings.ToLower(alias)]
	return command, ok
}

// Commands returns a map of all registered commands indexed by the alias they
// were registered with.
func Commands() map[string]Command {
	commandMu.RLock()
	defer commandMu.RUnlock()

	return maps.Clone(commands)
}
