// Package main is the entry point for the ledger-suggest CLI.
package main

import (
	"os"

	"github.com/pigeonworks-llc/ledger-suggest/cmd/ledger-suggest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
