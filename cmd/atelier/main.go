package main

import (
	"os"

	"github.com/renovo-atelier/atelier/cmd/atelier/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
