package theme

import (
	"fmt"
	"io"
	"os"
)

const (
	cyan    = "\033[36m"
	magenta = "\033[35m"
	yellow  = "\033[33m"
	reset   = "\033[0m"
)

// Banner returns the CLI banner.
func Banner() string {
	art := "" +
		"  ✦✧   " + magenta + "ANIREC" + reset + "   ✧✦\n" +
		cyan + "   ▄▀▄ █▄ █ █ █▀▄ ██▀ ▄▀▀\n" + reset +
		cyan + "   █▀█ █ ▀█ █ █▀▄ █▄▄ ▀▄▄\n" + reset +
		yellow + "   ─────────────────────────\n" + reset +
		"   what to watch next ✦\n"
	return art
}

// Confidence renders a 0-100 confidence as a ten-cell bar.
func Confidence(c float64) string {
	cells := int(c/10 + 0.5)
	if cells < 0 {
		cells = 0
	}
	if cells > 10 {
		cells = 10
	}
	bar := ""
	for i := 0; i < 10; i++ {
		if i < cells {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

// PrintBanner writes the banner to stderr so stdout stays machine-readable.
func PrintBanner() { FprintBanner(os.Stderr) }

func FprintBanner(w io.Writer) { fmt.Fprint(w, Banner()) }
