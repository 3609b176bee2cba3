package command

import (
	"errors"
	"fmt"
	"strings"
)

var ErrDuplicateCommand = errors.New("command already registered")

// Host is the capability set the engine requires from an application
// command. The first whitespace-delimited token of any stored command
// string must equal the host's name.
type Host interface {
	// Name returns the command identity.
	Name() string

	// Help returns a one-line description of the command.
	Help() string

	// Options returns the command's parser. The engine parses stored
	// command strings through it before Redo.
	Options() *Parser

	// Redo applies the command using the last parsed options.
	Redo() error

	// Backup writes the pre-image state needed to reverse the command.
	Backup(c *Cursor)

	// Undo reads the pre-image back and applies it. Reads must mirror
	// the writes of Backup.
	Undo(c *Cursor) error
}

// Registry maps command names to hosts.
type Registry struct {
	hosts map[string]Host
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{hosts: make(map[string]Host)}
}

// Register adds a host under its own name.
func (r *Registry) Register(h Host) error {
	name := h.Name()
	if _, exists := r.hosts[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	r.hosts[name] = h
	return nil
}

// Lookup returns the host registered under name.
func (r *Registry) Lookup(name string) (Host, bool) {
	h, ok := r.hosts[name]
	return h, ok
}

// Name extracts the command name from a command line: its first
// whitespace-delimited token.
func Name(line string) string {
	if fields := strings.Fields(line); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
