// Command hostleasectl is the operator CLI for inspecting and configuring
// a hostleased instance: it reads a running daemon's status API and
// manages its configuration file.
package main

import (
	"fmt"
	"os"

	"github.com/hostlease/hostlease/cmd/hostleasectl/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
