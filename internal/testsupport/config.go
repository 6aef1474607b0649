package testsupport

import (
	"path/filepath"
	"testing"

	"shutter/internal/config"
	"shutter/internal/filters"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.IndexDir = filepath.Join(base, "index")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.TrashDir = filepath.Join(base, "trash")
	cfgVal.Placement.BaseDir = filepath.Join(base, "library")
	cfgVal.Metadata.ExiftoolPath = filepath.Join(base, "bin", "exiftool")
	cfgVal.Logging.RetentionDays = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithTrash enables moving duplicates into the trash directory.
func WithTrash() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Placement.TrashEnabled = true
	}
}

// WithDryRun enables placement dry-run mode.
func WithDryRun() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Placement.DryRun = true
	}
}

// WithFilters installs filter rules on the test config.
func WithFilters(rules filters.Filters) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.SetFilterRules(rules)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.IndexDir)
}
