package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	if err := c.normalizePlacement(); err != nil {
		return err
	}
	c.normalizeDuplicates()
	c.normalizeMetadata()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.IndexDir) == "" {
		c.Paths.IndexDir = defaultIndexDir
	}
	if c.Paths.IndexDir, err = expandPath(c.Paths.IndexDir); err != nil {
		return fmt.Errorf("paths.index_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TrashDir) == "" {
		c.Paths.TrashDir = defaultTrashDir
	}
	if c.Paths.TrashDir, err = expandPath(c.Paths.TrashDir); err != nil {
		return fmt.Errorf("paths.trash_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() {
	exts := make([]string, 0, len(c.Scan.Extensions))
	seen := make(map[string]struct{}, len(c.Scan.Extensions))
	for _, ext := range c.Scan.Extensions {
		normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultExtensions...)
	}
	c.Scan.Extensions = exts
	if c.Scan.MaxDepth < 0 {
		c.Scan.MaxDepth = 0
	}
}

func (c *Config) normalizePlacement() error {
	var err error
	if strings.TrimSpace(c.Placement.BaseDir) == "" {
		c.Placement.BaseDir = defaultPlacementBaseDir
	}
	if c.Placement.BaseDir, err = expandPath(c.Placement.BaseDir); err != nil {
		return fmt.Errorf("placement.base_dir: %w", err)
	}
	if c.Placement.MaxProbe == 0 {
		c.Placement.MaxProbe = defaultMaxProbe
	}
	return nil
}

func (c *Config) normalizeDuplicates() {
	if c.Duplicates.MaxGroups == 0 {
		c.Duplicates.MaxGroups = defaultMaxGroups
	}
	c.Duplicates.Keep = strings.ToLower(strings.TrimSpace(c.Duplicates.Keep))
	if c.Duplicates.Keep == "" {
		c.Duplicates.Keep = defaultKeepPolicy
	}
}

func (c *Config) normalizeMetadata() {
	c.Metadata.ExiftoolPath = strings.TrimSpace(c.Metadata.ExiftoolPath)
	if c.Metadata.ExiftoolPath == "" {
		if value, ok := os.LookupEnv("SHUTTER_EXIFTOOL"); ok {
			c.Metadata.ExiftoolPath = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
