package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/hostlease/hostlease/internal/config"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the configuration's JSON Schema",
	Long: `Schema reflects internal/config.Config into a JSON Schema document,
suitable for IDE autocompletion and external validation of the YAML
configuration file.

Examples:
  hostleasectl config schema > hostleased.schema.json`,
	RunE: runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	reflector := &jsonschema.Reflector{
		FieldNameTag: "yaml",
	}
	schema := reflector.Reflect(&config.Config{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}

	cmd.Println(string(data))
	return nil
}
