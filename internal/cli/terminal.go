package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// TerminalDetector reports whether a file descriptor is an interactive terminal
type TerminalDetector interface {
	IsTerminal(fd int) bool
}

// DefaultTerminalDetector asks golang.org/x/term. A dumb terminal does not
// count, since it cannot redraw the prompt cleanly.
type DefaultTerminalDetector struct {
	// Getenv defaults to os.Getenv
	Getenv func(string) string
}

func (d *DefaultTerminalDetector) IsTerminal(fd int) bool {
	getenv := d.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if getenv("TERM") == "dumb" {
		slog.Debug("dumb terminal, treating input as a script", "fd", fd)
		return false
	}
	ok := term.IsTerminal(fd)
	slog.Debug("terminal detection result", "fd", fd, "is_terminal", ok)
	return ok
}

// isInteractiveTerminal decides whether the run command shows a prompt
func (c *CLI) isInteractiveTerminal(fd int) bool {
	if c.terminalDetector == nil {
		c.terminalDetector = &DefaultTerminalDetector{}
	}
	return c.terminalDetector.IsTerminal(fd)
}
