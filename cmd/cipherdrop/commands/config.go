package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/marmos91/cipherdrop/internal/cli/output"
	"github.com/marmos91/cipherdrop/pkg/config"
	"github.com/marmos91/cipherdrop/pkg/state/store"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Inspect and validate CipherDrop configuration files.

Use 'cipherdrop init' to create a new configuration file.

Subcommands:
  show      Display current configuration
  validate  Validate configuration file
  schema    Generate JSON schema for IDE/validation`,
}

var (
	configShowOutput string
	schemaOutput     string
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the current CipherDrop configuration.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show effective config as YAML
  cipherdrop config show

  # Show as JSON
  cipherdrop config show --output json

  # Show specific config file
  cipherdrop config show --config /etc/cipherdrop/config.yaml`,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the CipherDrop configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  cipherdrop config validate

  # Validate specific config file
  cipherdrop config validate --config /etc/cipherdrop/config.yaml`,
	RunE: runConfigValidate,
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schema for configuration",
	Long: `Generate a JSON schema for the CipherDrop configuration file.

The schema can be used for:
  - IDE autocompletion (VS Code, IntelliJ, etc.)
  - Configuration file validation
  - Documentation generation

Examples:
  # Print schema to stdout
  cipherdrop config schema

  # Save schema to file
  cipherdrop config schema --output config.schema.json`,
	RunE: runConfigSchema,
}

func init() {
	configShowCmd.Flags().StringVarP(&configShowOutput, "output", "o", "yaml", "Output format (yaml|json)")
	configSchemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Output file (default: stdout)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configSchemaCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(configShowOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg)
	default:
		return output.PrintYAML(os.Stdout, cfg)
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	// Determine path for display
	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	// Things that pass validation but deserve a heads-up
	var warnings []string

	if cfg.Database.Driver == store.DriverMemory {
		warnings = append(warnings, "memory database configured - clients and files are lost on restart")
	}
	if cfg.Backup.Bucket == "" {
		warnings = append(warnings, "backup.bucket not configured - 'cipherdrop backup' will fail")
	}

	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	port, portSource := config.ResolvePort(&cfg.Server)

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Transfer port:   %d (%s)\n", port, portSource)
	fmt.Printf("  Database driver: %s\n", cfg.Database.Driver)
	fmt.Printf("  Storage root:    %s\n", cfg.Storage.Root)
	fmt.Printf("  Log level:       %s\n", cfg.Logging.Level)

	return nil
}

func runConfigSchema(cmd *cobra.Command, args []string) error {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "CipherDrop Configuration"
	schema.Description = "Configuration schema for the CipherDrop server"

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if schemaOutput != "" {
		if err := os.WriteFile(schemaOutput, schemaJSON, 0644); err != nil {
			return fmt.Errorf("failed to write schema file: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", schemaOutput)
		return nil
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(schemaJSON))
	return nil
}
