// Package config implements the hostleasectl "config" subcommand group.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the config subcommand group.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate hostleased configuration",
	Long: `Subcommands:
  show      Display the effective configuration
  validate  Validate a configuration file
  schema    Print the configuration's JSON Schema`,
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(schemaCmd)
}
