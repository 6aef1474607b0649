package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"shutter/internal/filters"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for persistent state.
type Paths struct {
	IndexDir string `toml:"index_dir"`
	LogDir   string `toml:"log_dir"`
	TrashDir string `toml:"trash_dir"`
}

// Scan controls which files the scanner indexes.
type Scan struct {
	Extensions []string `toml:"extensions"`
	MaxDepth   int      `toml:"max_depth"` // 0 means unlimited
}

// Placement controls the canonical placement pipeline.
type Placement struct {
	BaseDir      string `toml:"base_dir"`
	DryRun       bool   `toml:"dry_run"`
	TrashEnabled bool   `toml:"trash_enabled"`
	MaxProbe     int    `toml:"max_probe"`
}

// Duplicates controls duplicate resolution.
type Duplicates struct {
	MaxGroups int    `toml:"max_groups"`
	Keep      string `toml:"keep"`
}

// Metadata configures the exiftool-backed metadata editor.
type Metadata struct {
	ExiftoolPath string `toml:"exiftool_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for shutter.
//
// Configuration sections by subsystem:
//   - Paths: index database, logs, and trash locations
//   - Scan: indexed extensions and walk depth
//   - Filters: substring include/exclude groups shared by scan and duplicates
//   - Placement: canonical layout base, dry-run, trash, and probe ceiling
//   - Duplicates: group cap and keep policy
//   - Metadata: exiftool location
//   - Logging: log format, level, and retention
//
// Filters values may be a single string or an array of strings, so the section
// is decoded loosely and interpreted by FilterRules.
type Config struct {
	Paths      Paths          `toml:"paths"`
	Scan       Scan           `toml:"scan"`
	Filters    map[string]any `toml:"filters"`
	Placement  Placement      `toml:"placement"`
	Duplicates Duplicates     `toml:"duplicates"`
	Metadata   Metadata       `toml:"metadata"`
	Logging    Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shutter/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shutter.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the index and log directories, and the trash
// directory when trashing is enabled. The placement base is created lazily by
// the pipeline so a dry run never touches it.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.IndexDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Placement.TrashEnabled && strings.TrimSpace(c.Paths.TrashDir) != "" {
		if err := os.MkdirAll(c.Paths.TrashDir, 0o755); err != nil {
			return fmt.Errorf("create trash directory %q: %w", c.Paths.TrashDir, err)
		}
	}
	return nil
}

// IndexPath returns the SQLite database location.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Paths.IndexDir, indexFileName)
}

// ExiftoolBinary returns the exiftool executable to launch.
func (c *Config) ExiftoolBinary() string {
	if p := strings.TrimSpace(c.Metadata.ExiftoolPath); p != "" {
		return p
	}
	return defaultExiftoolBinary
}

// FilterRules interprets the [filters] section. Invalid entries are rejected
// by Validate, so callers of a loaded config always get the full rule set.
func (c *Config) FilterRules() filters.Filters {
	rules, _ := parseFilters(c.Filters)
	return rules
}

// SetFilterRules replaces the [filters] section with the provided rules.
func (c *Config) SetFilterRules(rules filters.Filters) {
	raw := make(map[string]any, 4)
	set := func(key string, values []string) {
		if len(values) == 0 {
			return
		}
		list := make([]any, 0, len(values))
		for _, v := range values {
			list = append(list, v)
		}
		raw[key] = list
	}
	set(filters.GroupPath, rules.Path)
	set(filters.GroupPathExclude, rules.PathExclude)
	set(filters.GroupFile, rules.File)
	set(filters.GroupFileExclude, rules.FileExclude)
	if len(raw) == 0 {
		raw = nil
	}
	c.Filters = raw
}

func parseFilters(raw map[string]any) (filters.Filters, error) {
	var rules filters.Filters
	for key, value := range raw {
		values, err := stringOrList(value)
		if err != nil {
			return filters.Filters{}, fmt.Errorf("filters.%s: %w", key, err)
		}
		if !rules.Set(key, values) {
			return filters.Filters{}, fmt.Errorf("filters.%s: unknown filter group (expected path, path_exclude, file, or file_exclude)", key)
		}
	}
	return rules, nil
}

func stringOrList(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string entries, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or array of strings, got %T", value)
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
