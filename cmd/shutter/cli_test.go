package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shutter/internal/config"
	"shutter/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	photos     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("SHUTTER_EXIFTOOL", "")

	configPath := filepath.Join(home, ".config", "shutter", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		photos:     filepath.Join(testsupport.BaseDir(cfg), "photos"),
	}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitValidateShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}

	out, _, err = runCLI(t, "--config", target, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[placement]")
	requireContains(t, out, "canonical")
}

func TestScanThenDuplicates(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteImage(t, filepath.Join(env.photos, "a.jpg"), 1)
	testsupport.WriteImage(t, filepath.Join(env.photos, "copy", "a.jpg"), 1)
	testsupport.WriteImage(t, filepath.Join(env.photos, "b.jpg"), 2)

	out, _, err := runCLI(t, "--silent", "--json", "scan", env.photos)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var scans []scanView
	if err := json.Unmarshal([]byte(out), &scans); err != nil {
		t.Fatalf("decode scan output: %v\n%s", err, out)
	}
	if len(scans) != 1 || scans[0].Indexed != 3 {
		t.Fatalf("unexpected scan output %+v", scans)
	}

	out, _, err = runCLI(t, "--silent", "--json", "duplicates", "--keep", "oldest")
	if err != nil {
		t.Fatalf("duplicates: %v", err)
	}
	var dupes duplicatesView
	if err := json.Unmarshal([]byte(out), &dupes); err != nil {
		t.Fatalf("decode duplicates output: %v\n%s", err, out)
	}
	if len(dupes.Groups) != 1 || len(dupes.Groups[0].Members) != 2 {
		t.Fatalf("unexpected duplicates %+v", dupes)
	}

	out, _, err = runCLI(t, "--silent", "duplicates")
	if err != nil {
		t.Fatalf("duplicates table: %v", err)
	}
	requireContains(t, out, "2 duplicates found in 1 groups")

	out, _, err = runCLI(t, "--silent", "duplicates", "--trash")
	if err != nil {
		t.Fatalf("duplicates --trash: %v", err)
	}
	requireContains(t, out, "Moved 1 files to trash")
	entries, err := os.ReadDir(env.cfg.Paths.TrashDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one trashed file, got %v err=%v", entries, err)
	}
}

func TestCompareReportsDistanceAndIndexState(t *testing.T) {
	env := setupCLITestEnv(t)
	a := filepath.Join(env.photos, "a.jpg")
	copyOfA := filepath.Join(env.photos, "copy", "a.jpg")
	testsupport.WriteImage(t, a, 1)
	testsupport.WriteImage(t, copyOfA, 1)
	if _, _, err := runCLI(t, "--silent", "scan", filepath.Dir(copyOfA)); err != nil {
		t.Fatalf("scan: %v", err)
	}

	out, _, err := runCLI(t, "--silent", "--json", "compare", a, copyOfA)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	var view compareView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode compare output: %v\n%s", err, out)
	}
	if view.Distance != 0 || !view.SameSignature || len(view.Files) != 2 {
		t.Fatalf("unexpected comparison %+v", view)
	}
	if view.Files[0].Indexed || !view.Files[1].Indexed || !view.Files[1].IndexCurrent {
		t.Fatalf("unexpected index state %+v", view.Files)
	}

	out, _, err = runCLI(t, "--silent", "compare", a, copyOfA)
	if err != nil {
		t.Fatalf("compare table: %v", err)
	}
	requireContains(t, out, "Hamming distance: 0")
}

func TestPlaceDryRun(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(env.photos, "IMG_20190102_030405.jpg")
	testsupport.WriteImage(t, src, 1)
	testsupport.WriteImage(t, filepath.Join(env.photos, "untimed.jpg"), 2)

	out, _, err := runCLI(t, "--silent", "--json", "place", "--dry-run", env.photos)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	var view placeView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode place output: %v\n%s", err, out)
	}
	if !view.DryRun || view.Placed != 1 || view.Skipped != 1 || view.NeedsAttention != 1 || len(view.Results) != 2 {
		t.Fatalf("unexpected place output %+v", view)
	}
	if view.Results[1].ErrorKind != "validation" {
		t.Fatalf("expected untimed file to be a validation skip, got %+v", view.Results[1])
	}
	want := filepath.Join(env.cfg.Placement.BaseDir, "2019", "Jan", "2019-01-02_03'04'05.jpg")
	if view.Results[0].Destination != want {
		t.Fatalf("destination %q, want %q", view.Results[0].Destination, want)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("dry run moved the source: %v", err)
	}

	if _, _, err := runCLI(t, "place", "--in-place", "--base", "/x", src); err == nil {
		t.Fatal("expected --base and --in-place to conflict")
	}
}

func TestPruneAndHealth(t *testing.T) {
	env := setupCLITestEnv(t)
	doomed := filepath.Join(env.photos, "a.jpg")
	testsupport.WriteImage(t, doomed, 1)
	testsupport.WriteImage(t, filepath.Join(env.photos, "b.jpg"), 2)

	if _, _, err := runCLI(t, "--silent", "scan", env.photos); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if err := os.Remove(doomed); err != nil {
		t.Fatalf("remove: %v", err)
	}

	out, _, err := runCLI(t, "--silent", "prune")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out, "Checked 2 entries. Removed 1 stale entries.")

	out, _, err = runCLI(t, "--silent", "index", "health")
	if err != nil {
		t.Fatalf("index health: %v", err)
	}
	requireContains(t, out, "Integrity check: yes")
	requireContains(t, out, "Total records: 1")
}

func TestLogFileWrittenWhenSilent(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.photos, 0o755); err != nil {
		t.Fatal(err)
	}
	_, stderr, err := runCLI(t, "--silent", "scan", env.photos)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if stderr != "" {
		t.Fatalf("expected no console logging, got %q", stderr)
	}
	matches, _ := filepath.Glob(filepath.Join(env.cfg.Paths.LogDir, "shutter-*.log"))
	if len(matches) != 1 {
		t.Fatalf("expected one dated log file, got %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, string(data), `"msg":"scan complete"`)
	requireContains(t, string(data), `"run_id"`)
}
