package main

import (
	"os"

	"github.com/placeprep/placeprep/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
