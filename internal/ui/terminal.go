package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether ANSI colors should be written to f.
// NO_COLOR disables, CLICOLOR_FORCE=1 forces, CLICOLOR=0 disables,
// otherwise color follows whether f is a terminal.
func ShouldUseColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Setup applies the color decision for f to every renderer in this package.
func Setup(f *os.File, noColor bool) {
	if noColor || !ShouldUseColor(f) {
		ForceNoColor()
		return
	}
	ForceColor()
}
