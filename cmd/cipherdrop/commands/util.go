package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/marmos91/cipherdrop/internal/cli/output"
	"github.com/marmos91/cipherdrop/internal/logger"
	"github.com/marmos91/cipherdrop/pkg/config"
	"github.com/marmos91/cipherdrop/pkg/state"
	"github.com/marmos91/cipherdrop/pkg/state/store"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// openRegistry loads the configured state store and returns a loaded
// registry plus a release function. Used by the admin commands that
// inspect state without running the server.
func openRegistry(ctx context.Context, cfg *config.Config) (*state.Registry, func(), error) {
	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}

	closeStore := func() { _ = st.Close() }

	registry := state.NewRegistry(st)
	if err := registry.Load(ctx); err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to load state: %w", err)
	}

	return registry, closeStore, nil
}

// printOutput prints data in the requested format (JSON, YAML, or table).
// For table format it displays emptyMsg if isEmpty, otherwise renders the
// tableRenderer.
func printOutput(w io.Writer, formatStr string, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// boolToYesNo converts a boolean to "yes" or "no" for table display.
func boolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
