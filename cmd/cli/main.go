// Package main is the entry point for hirectl, the terminal client for the
// hirelane API.
package main

import (
	"hirelane/cmd/cli/cmd"
	"os"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
