// Package commands implements the hostleased CLI commands.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "hostleased",
	Short: "hostleased holds a host's lease and ships its diagnostic traces",
	Long: `hostleased is the daemon half of the host lease system: it races a
configured backing store (Postgres, S3, or an embedded local store) for
exclusive ownership of a named host, renews that ownership on a fixed
cadence for as long as it holds it, and ships its own diagnostic events to
a buffered trace pipeline.

Use "hostleased start" to run it, or "hostleasectl" to manage it from
another process.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/hostleased/config.yaml)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("hostleased %s (commit: %s, built: %s)\n", Version, Commit, Date)
		return nil
	},
}
