// Package main is the entry point for the mutelink CLI.
package main

import (
	"os"

	"github.com/mutelink/mutelink/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
