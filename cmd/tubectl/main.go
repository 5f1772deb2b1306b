// Command tubectl ranks exported YouTube videos and upload slots from the
// terminal, sharing the scoring engine used by the HTTP server.
package main

import (
	"os"

	"github.com/fatih/color"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
