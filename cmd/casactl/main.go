package main

// Drive an analysis from the command line:
//   go run ./cmd/casactl --guest-id demo analyze sample.mp4

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
