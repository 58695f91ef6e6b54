package tiling

import (
	"fmt"
	"strings"
)

// Command identifies one grid operation.
type Command string

const (
	CommandFull   Command = "full"
	CommandWide   Command = "wide"
	CommandNarrow Command = "narrow"
	CommandTall   Command = "tall"
	CommandShort  Command = "short"
	CommandLeft   Command = "left"
	CommandRight  Command = "right"
	CommandUp     Command = "up"
	CommandDown   Command = "down"
)

var allCommands = []Command{
	CommandFull,
	CommandWide,
	CommandNarrow,
	CommandTall,
	CommandShort,
	CommandLeft,
	CommandRight,
	CommandUp,
	CommandDown,
}

// Commands returns every known command in a stable order.
func Commands() []Command {
	out := make([]Command, len(allCommands))
	copy(out, allCommands)
	return out
}

// Valid reports whether c is one of the known commands.
func (c Command) Valid() bool {
	for _, known := range allCommands {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCommand maps a command name to a Command. Names are case-insensitive
// and may carry the "lr-" prefix, optionally preceded by an ordering prefix
// such as "03-lr-left".
func ParseCommand(name string) (Command, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if i := strings.Index(s, "lr-"); i >= 0 {
		s = s[i+len("lr-"):]
	}
	cmd := Command(s)
	if !cmd.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedCommand, name)
	}
	return cmd, nil
}
