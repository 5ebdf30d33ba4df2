// Package tui holds terminal presentation helpers for the CLI.
package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"     _         _         _____ _",
	"    / \\  _   _| |_ ___ |  ___| | _____      __",
	"   / _ \\| | | | __/ _ \\| |_  | |/ _ \\ \\ /\\ / /",
	"  / ___ \\ |_| | || (_) |  _| | | (_) \\ V  V /",
	" /_/   \\_\\__,_|\\__\\___/|_|   |_|\\___/ \\_/\\_/",
}

// Indigo to rose, one color per line.
var bannerColors = []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6", "#fb7185"}

// PrintBanner writes the AutoFlow banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i%len(bannerColors)])))
	}
	fmt.Fprintln(w)
}
