package main

import (
	"os"

	"github.com/moolen/troubleshooter/cmd/troubleshooter/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
