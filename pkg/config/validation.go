package config

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for invalid or inconsistent values.
//
// Struct tags drive the field-level checks (required, oneof, ranges);
// cross-field rules that tags cannot express are checked explicitly.
// Validate does not mutate the config; normalization happens in
// ApplyDefaults.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		return err
	}

	// Cross-field rules.
	// The payload_size field on the wire is u32, so a limit of 4 GiB or
	// more could never be enforced and would wrap when handed to the reader.
	if cfg.Server.MaxPayload.Uint64() > math.MaxUint32 {
		return fmt.Errorf("server.max_payload %s exceeds the 4GiB wire limit", cfg.Server.MaxPayload)
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry is enabled but no endpoint is configured")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("profiling is enabled but no endpoint is configured")
	}
	if cfg.API.Enabled {
		if cfg.API.JWTSecret == "" {
			return fmt.Errorf("api is enabled but api.jwt_secret is not set")
		}
		if len(cfg.API.JWTSecret) < 32 {
			return fmt.Errorf("api.jwt_secret must be at least 32 characters (got %d)", len(cfg.API.JWTSecret))
		}
	}
	if cfg.Database.Driver == "postgres" && cfg.Database.URL == "" {
		return fmt.Errorf("database driver is postgres but database.url is not set")
	}

	return nil
}
