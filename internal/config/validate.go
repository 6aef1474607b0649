package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFilters(); err != nil {
		return err
	}
	if err := c.validatePlacement(); err != nil {
		return err
	}
	if err := c.validateDuplicates(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.IndexDir) == "" {
		return errors.New("paths.index_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateFilters() error {
	_, err := parseFilters(c.Filters)
	return err
}

func (c *Config) validatePlacement() error {
	if strings.TrimSpace(c.Placement.BaseDir) == "" {
		return errors.New("placement.base_dir must be set")
	}
	if c.Placement.MaxProbe <= 0 {
		return errors.New("placement.max_probe must be positive")
	}
	if c.Placement.TrashEnabled && strings.TrimSpace(c.Paths.TrashDir) == "" {
		return errors.New("paths.trash_dir must be set when placement.trash_enabled is true")
	}
	return nil
}

func (c *Config) validateDuplicates() error {
	if c.Duplicates.MaxGroups <= 0 {
		return errors.New("duplicates.max_groups must be positive")
	}
	switch c.Duplicates.Keep {
	case "oldest", "canonical":
	default:
		return fmt.Errorf("duplicates.keep: unsupported value %q (expected oldest or canonical)", c.Duplicates.Keep)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
