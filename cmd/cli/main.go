// Package main is the entry point for the egu-projection CLI.
package main

import (
	"os"

	"egu-projection/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
