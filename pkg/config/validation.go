package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. Struct tag validation is
// stateless, so a single instance is safe for concurrent use.
var validate = validator.New()

// Validate checks the configuration for errors.
//
// Validation happens in two stages:
//  1. Struct tag validation (required, oneof, min/max ranges)
//  2. Cross-field checks that tags cannot express
//
// Validate does not mutate the config; normalization belongs to
// ApplyDefaults.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok {
			return fmt.Errorf("invalid configuration: %s", formatValidationErrors(verrs))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Telemetry requires an endpoint when enabled
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("invalid configuration: telemetry is enabled but no endpoint is set")
	}

	// Profiling requires an endpoint when enabled
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("invalid configuration: profiling is enabled but no endpoint is set")
	}

	// Metrics server needs a port when enabled
	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		return fmt.Errorf("invalid configuration: metrics are enabled but no port is set")
	}

	// The metrics server must not collide with the API server
	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.API.Port {
		return fmt.Errorf("invalid configuration: metrics port %d collides with api port", cfg.Metrics.Port)
	}

	// Dump size cap cannot exceed what the API will accept in one request
	if cfg.Storage.MaxDumpSize > cfg.API.MaxRequestBodySize {
		return fmt.Errorf("invalid configuration: storage.max_dump_size (%s) exceeds api.max_request_body_size (%s)",
			cfg.Storage.MaxDumpSize, cfg.API.MaxRequestBodySize)
	}

	return nil
}

// asValidationErrors unwraps err into validator.ValidationErrors.
func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

// formatValidationErrors renders validator errors as a readable list of
// "Field: failed 'tag'" entries.
func formatValidationErrors(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Strip the leading "Config." from the namespace for brevity
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s' validation", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s' validation", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
