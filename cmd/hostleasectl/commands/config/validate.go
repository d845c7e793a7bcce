package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hostlease/hostlease/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate loads the file at --config (or the default location) and
runs the same validation hostleased applies at startup, without starting
any of the components it describes.

Examples:
  hostleasectl config validate
  hostleasectl config validate --config /etc/hostleased/config.yaml`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cmd.Println("configuration is valid")
	return nil
}
