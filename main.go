package main

import (
	"github.com/mozilla-ai/mcpfleet/cmd"
)

func main() {
	// Execute the root command.
	cmd.Execute()
}
