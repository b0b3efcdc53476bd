package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/mntfs/pkg/mtab"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration with struct tags plus the rules that
// tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	// The offset rule also lives in mtab.NewIDMap; checking here reports it
	// as a configuration error instead of a startup failure.
	if _, err := mtab.NewIDMap(cfg.Export.IDOffset); err != nil {
		return fmt.Errorf("export.id_offset: %w", err)
	}

	if cfg.Mounts.Source == "proc" {
		if pid, ok := cfg.Mounts.Proc["pid"].(string); ok && pid == "" {
			return fmt.Errorf("mounts.proc.pid: must not be empty")
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress == "" {
		return fmt.Errorf("metrics.listen_address: required when metrics are enabled")
	}

	return nil
}

func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
