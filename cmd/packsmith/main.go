package main

import (
	"os"

	"github.com/packsmith-editor/packsmith/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
