// Package commands implements the hostleasectl CLI commands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/hostlease/hostlease/cmd/hostleasectl/commands/config"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile  string
	apiAddr  string
	apiToken string
)

var rootCmd = &cobra.Command{
	Use:   "hostleasectl",
	Short: "Operate and inspect a hostleased instance",
	Long: `hostleasectl manages hostleased configuration files and queries a
running daemon's read-only status API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/hostleased/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api-addr", "http://localhost:8443", "hostleased status API base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "api-token", "", "bearer token for the status API")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(config.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("hostleasectl %s (commit: %s, built: %s)\n", Version, Commit, Date)
		return nil
	},
}
