package cmd

import "github.com/google/uuid"

// Source is the source of a command execution, such as the console.
type Source interface {
	// SendCommandOutput sends the output of a command to the source.
	SendCommandOutput(o *Output)
}

// Agent is implemented by sources that act as a streaming agent. Boundary
// events raised by commands of such a source carry its ID.
type Agent interface {
	Agent() uuid.UUID
}
