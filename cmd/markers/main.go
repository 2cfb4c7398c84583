package main

import (
	"os"

	"github.com/samirrijal/staymap/cmd/markers/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
