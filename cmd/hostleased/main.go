// Command hostleased is the daemon that holds a host's exclusive lease for
// as long as it can and reports its own operational state to stdout traces
// and, optionally, a read-only status API.
package main

import (
	"fmt"
	"os"

	"github.com/hostlease/hostlease/cmd/hostleased/commands"
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
