package main

import (
	"os"

	"github.com/diagramify/diagramify/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
