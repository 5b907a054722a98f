package ui

import "github.com/fatih/color"

var (
	accent  = color.New(color.FgBlue, color.Bold)
	command = color.New(color.FgWhite)
	muted   = color.New(color.FgHiBlack)
	failure = color.New(color.FgRed)
)

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return accent.Sprint(s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return muted.Sprint(s)
}

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string {
	return command.Sprint(s)
}

// RenderError returns s in red.
func RenderError(s string) string {
	return failure.Sprint(s)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	color.NoColor = true
}

// ForceColor enables color output even when stdout is not a terminal.
func ForceColor() {
	color.NoColor = false
}
