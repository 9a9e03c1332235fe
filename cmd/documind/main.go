// Command documind is the entry point for the DocuMind document assistant.
// It provides a CLI interface (via Cobra) and an HTTP server exposing the
// session-scoped document chat API.
package main

import (
	"fmt"
	"os"

	"github.com/ronak8180/DocuMind/cmd/documind/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
