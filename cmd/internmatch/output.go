package main

import (
	"fmt"
	"io"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// messages go to stderr so stdout stays clean for list and export output.
var messageOut io.Writer = os.Stderr

func printMark(color, mark, format string, args []any) {
	fmt.Fprintln(messageOut, colorize(color, mark+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { printMark(colorGreen, "✓", format, args) }
func printError(format string, args ...any)   { printMark(colorRed, "✗", format, args) }
func printWarning(format string, args ...any) { printMark(colorYellow, "⚠", format, args) }
func printStep(format string, args ...any)    { printMark(colorCyan, "→", format, args) }

// printStatus writes an indented "label: value" row.
func printStatus(label, format string, args ...any) {
	fmt.Fprintf(messageOut, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

// scoreLabel renders a suitability score, colored by band.
func scoreLabel(score int) string {
	text := fmt.Sprintf("%3d", score)
	switch {
	case score >= 85:
		return colorize(colorGreen, text)
	case score >= 70:
		return colorize(colorYellow, text)
	default:
		return colorize(colorRed, text)
	}
}

// shortID trims UUIDs for tabular output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
