package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"shutter/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SHUTTER_EXIFTOOL", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantIndex := filepath.Join(tempHome, ".local", "share", "shutter")
	if cfg.Paths.IndexDir != wantIndex {
		t.Fatalf("unexpected index dir: got %q want %q", cfg.Paths.IndexDir, wantIndex)
	}
	if cfg.IndexPath() != filepath.Join(wantIndex, "index.db") {
		t.Fatalf("unexpected index path: %q", cfg.IndexPath())
	}
	if cfg.Placement.BaseDir != filepath.Join(tempHome, "Pictures") {
		t.Fatalf("unexpected base dir: %q", cfg.Placement.BaseDir)
	}
	if cfg.Placement.MaxProbe != 100000 {
		t.Fatalf("unexpected max probe: %d", cfg.Placement.MaxProbe)
	}
	if cfg.Placement.TrashEnabled || cfg.Placement.DryRun {
		t.Fatal("expected trash and dry-run disabled by default")
	}
	if cfg.Duplicates.Keep != "canonical" {
		t.Fatalf("unexpected keep policy: %q", cfg.Duplicates.Keep)
	}
	if cfg.Duplicates.MaxGroups != 1000 {
		t.Fatalf("unexpected max groups: %d", cfg.Duplicates.MaxGroups)
	}
	if got := strings.Join(cfg.Scan.Extensions, ","); got != "jpg,jpeg" {
		t.Fatalf("unexpected extensions: %q", got)
	}
	if cfg.ExiftoolBinary() != "exiftool" {
		t.Fatalf("unexpected exiftool binary: %q", cfg.ExiftoolBinary())
	}
	if !cfg.FilterRules().IsZero() {
		t.Fatalf("expected empty filters, got %+v", cfg.FilterRules())
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
index_dir = "~/index"

[scan]
extensions = [".JPG", "jpeg", "jpg", ""]
max_depth = 3

[filters]
path = "/photos/"
path_exclude = ["/.thumbnails/", "/cache/"]
file_exclude = ["_edit"]

[placement]
base_dir = "~/Sorted"
dry_run = true
max_probe = 50

[duplicates]
keep = "OLDEST"
max_groups = 10

[metadata]
exiftool_path = "/opt/exiftool/exiftool"

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.IndexDir != filepath.Join(tempHome, "index") {
		t.Fatalf("unexpected index dir: %q", cfg.Paths.IndexDir)
	}
	if got := strings.Join(cfg.Scan.Extensions, ","); got != "jpg,jpeg" {
		t.Fatalf("expected normalized extensions, got %q", got)
	}
	if cfg.Scan.MaxDepth != 3 {
		t.Fatalf("unexpected max depth: %d", cfg.Scan.MaxDepth)
	}
	if cfg.Placement.BaseDir != filepath.Join(tempHome, "Sorted") || !cfg.Placement.DryRun || cfg.Placement.MaxProbe != 50 {
		t.Fatalf("unexpected placement: %+v", cfg.Placement)
	}
	if cfg.Duplicates.Keep != "oldest" || cfg.Duplicates.MaxGroups != 10 {
		t.Fatalf("unexpected duplicates: %+v", cfg.Duplicates)
	}
	if cfg.ExiftoolBinary() != "/opt/exiftool/exiftool" {
		t.Fatalf("unexpected exiftool binary: %q", cfg.ExiftoolBinary())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}

	rules := cfg.FilterRules()
	if len(rules.Path) != 1 || rules.Path[0] != "/photos/" {
		t.Fatalf("expected single string filter to become a list, got %v", rules.Path)
	}
	if len(rules.PathExclude) != 2 {
		t.Fatalf("unexpected path_exclude: %v", rules.PathExclude)
	}
	if len(rules.File) != 0 {
		t.Fatalf("expected absent file group, got %v", rules.File)
	}
	if len(rules.FileExclude) != 1 || rules.FileExclude[0] != "_edit" {
		t.Fatalf("unexpected file_exclude: %v", rules.FileExclude)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cases := map[string]string{
		"unknown filter group": "[filters]\nfolder = \"x\"\n",
		"non-string filter":    "[filters]\npath = [1, 2]\n",
		"bad keep policy":      "[duplicates]\nkeep = \"newest\"\n",
		"negative max probe":   "[placement]\nmax_probe = -1\n",
		"unknown key":          "[scan]\nrecursive = true\n",
		"bad log level":        "[logging]\nlevel = \"loud\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestExiftoolEnvFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHUTTER_EXIFTOOL", "/usr/local/bin/exiftool")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ExiftoolBinary() != "/usr/local/bin/exiftool" {
		t.Fatalf("expected env fallback, got %q", cfg.ExiftoolBinary())
	}
}

func TestEnsureDirectoriesCreatesTrashOnlyWhenEnabled(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.IndexDir = filepath.Join(base, "index")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.TrashDir = filepath.Join(base, "trash")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if _, err := os.Stat(cfg.Paths.TrashDir); !os.IsNotExist(err) {
		t.Fatalf("expected trash dir to be absent, stat err=%v", err)
	}

	cfg.Placement.TrashEnabled = true
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.IndexDir, cfg.Paths.LogDir, cfg.Paths.TrashDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestSampleConfigParses(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestSetFilterRulesRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	rules := cfg.FilterRules()
	rules.Set("path_exclude", []string{"/.trash/"})
	rules.Set("file", []string{"IMG_", "DSC"})
	cfg.SetFilterRules(rules)

	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := loaded.FilterRules()
	if len(got.PathExclude) != 1 || len(got.File) != 2 || got.File[1] != "DSC" {
		t.Fatalf("unexpected rules after reload: %+v", got)
	}
}
