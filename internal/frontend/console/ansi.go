// Package console is the terminal front end of the session client: it draws
// the main menu, server browser and lobby HUD as ANSI text and turns typed
// commands into orchestrator requests.
package console

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/multiplay/internal/game/lobby"
)

// ANSI escape code constants for terminal styling.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	White  = "\033[37m"

	// Gray renders the bright-black foreground.
	Gray         = "\033[90m"
	BrightYellow = "\033[93m"
	BrightCyan   = "\033[96m"
)

// Colorize wraps text with the given ANSI color code and a reset suffix.
//
// Precondition: color must be a valid ANSI escape sequence.
// Postcondition: Returns text wrapped with the color code and Reset.
func Colorize(color, text string) string {
	return color + text + Reset
}

// Colorf wraps a formatted string with the given ANSI color code.
func Colorf(color, format string, args ...any) string {
	return color + fmt.Sprintf(format, args...) + Reset
}

// StatusColor returns the color a readiness status is drawn in: gray while
// the lobby is short of players, red when not ready and green when ready.
func StatusColor(s lobby.Status) string {
	switch s {
	case lobby.Ready:
		return Green
	case lobby.NotReady:
		return Red
	default:
		return Gray
	}
}

// StripANSI removes all CSI "m" sequences from s.
//
// Postcondition: Returns s without any \033[...m sequence.
func StripANSI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for {
		i := strings.Index(s, "\033[")
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.IndexByte(s[i+2:], 'm')
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		s = s[i+2+end+1:]
	}
}
