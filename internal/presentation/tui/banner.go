package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the CLI banner with the given version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Indigo/Violet)
	s1 := termenv.String("   __               ").Foreground(p.Color("#818cf8"))
	s2 := termenv.String("  / _|___ _ __ ___  ").Foreground(p.Color("#a78bfa"))
	s3 := termenv.String(" | |_/ __| '_ ` _ \\ ").Foreground(p.Color("#c084fc"))
	s4 := termenv.String(" |  _\\__ \\ | | | | |").Foreground(p.Color("#e879f9"))
	s5 := termenv.String(" |_| |___/_| |_| |_|").Foreground(p.Color("#f472b6"))
	v := termenv.String(" v" + version).Foreground(p.Color("#fb7185")).Faint()

	fmt.Fprintln(w)
	fmt.Fprintln(w, s1)
	fmt.Fprintln(w, s2)
	fmt.Fprintln(w, s3)
	fmt.Fprintln(w, s4)
	fmt.Fprintln(w, s5, v)
	fmt.Fprintln(w)
}

// Prompt renders the REPL prompt showing the current state.
func Prompt(state string) string {
	p := termenv.ColorProfile()
	return termenv.String(state).Foreground(p.Color("#a78bfa")).Bold().String() + " > "
}

// Success renders a transition confirmation.
func Success(msg string) string {
	p := termenv.ColorProfile()
	return termenv.String(msg).Foreground(p.Color("#22c55e")).String()
}

// Failure renders an error message.
func Failure(msg string) string {
	p := termenv.ColorProfile()
	return termenv.String(msg).Foreground(p.Color("#ef4444")).String()
}
