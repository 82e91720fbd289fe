// Package main is the entry point for the experiment designer CLI.
package main

import (
	"fmt"
	"os"

	"github.com/experiment-designer/internal/cli"
)

func main() {
	app := cli.New()
	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
