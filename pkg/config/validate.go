package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct-tag constraints on the loaded configuration,
// plus cross-field rules the tag syntax can't express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if cfg.CustomPortMapping != nil {
		if err := validate.Struct(cfg.CustomPortMapping); err != nil {
			return fmt.Errorf("custom_port_mapping: %w", err)
		}
	}
	return nil
}
