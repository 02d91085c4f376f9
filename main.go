package main

import (
	"os"

	"github.com/awhite/vibetree/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
