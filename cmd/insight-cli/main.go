// Package main is the Insight Engine CLI entrypoint.
package main

import (
	"os"

	"github.com/reviewloop/insight-engine/cmd/insight-cli/commands"
	"github.com/reviewloop/insight-engine/cmd/insight-cli/ui"
)

func main() {
	if err := commands.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}
