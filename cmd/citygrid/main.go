// Package main is the entry point for the citygrid CLI.
package main

import (
	"os"

	"github.com/citygrid/citygrid/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
