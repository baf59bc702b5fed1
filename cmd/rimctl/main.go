package main

import (
	"fmt"
	"os"

	"rim/internal/rimctl/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rimctl: %v\n", err)
		os.Exit(1)
	}
}
