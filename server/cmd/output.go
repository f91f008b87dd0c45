package cmd

import (
	"errors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	MessageUnknown    = "Unknown command: %v. Type /help for a list of commands."
	MessagePermission = "You are not allowed to run /%v."
	MessageUsage      = "Usage: %v"
)

// printer formats numbers with digit grouping, so that large counts in command
// output stay readable.
var printer = message.NewPrinter(language.English)

// Output holds the output of a command execution. It holds messages and errors
// in the order they were added.
type Output struct {
	messages []string
	errors   []error
}

// Print adds a message to the output.
func (o *Output) Print(a ...any) {
	o.messages = append(o.messages, printer.Sprint(a...))
}

// Printf adds a formatted message to the output.
func (o *Output) Printf(format string, a ...any) {
	o.messages = append(o.messages, printer.Sprintf(format, a...))
}

// Error adds an error to the output.
func (o *Output) Error(a ...any) {
	o.errors = append(o.errors, errors.New(printer.Sprint(a...)))
}

// Errorf adds a formatted error to the output.
func (o *Output) Errorf(format string, a ...any) {
	o.errors = append(o.errors, errors.New(printer.Sprintf(format, a...)))
}

// Errort adds an error built from one of the Message constants.
func (o *Output) Errort(msg string, a ...any) {
	o.Errorf(msg, a...)
}

// Messages returns the messages added to the output.
func (o *Output) Messages() []string {
	return o.messages
}

// Errors returns the errors added to the output.
func (o *Output) Errors() []error {
	return o.errors
}

// MessageCount returns the number of messages in the output.
func (o *Output) MessageCount() int {
	return len(o.messages)
}

// ErrorCount returns the number of errors in the output.
func (o *Output) ErrorCount() int {
	return len(o.errors)
}
