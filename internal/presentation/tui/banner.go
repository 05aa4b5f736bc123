package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// PrintBanner outputs the ASCII art banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Warm gradient (Amber/Orange/Red)
	lines := []struct {
		text  string
		color string
	}{
		{`                 _     _      _      `, "#fbbf24"},
		{` __   _____ ___ | |__ (_) ___| | ___ `, "#f59e0b"},
		{` \ \ / / _ \ __|| '_ \| |/ __| |/ _ \`, "#f97316"},
		{`  \ V /  __/ (__| | | | | (__| |  __/`, "#ef4444"},
		{`   \_/ \___|\___|_| |_|_|\___|_|\___|`, "#dc2626"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("   "+version).Faint())
	fmt.Fprintln(w)
}
