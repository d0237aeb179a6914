// Package main is the stadatax entry point.
package main

import (
	"os"

	"github.com/stadata-x/stadatax/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
