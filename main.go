package main

import (
	"os"

	"github.com/edgepass/idphoto/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
