package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/unicode/norm"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileVerifiedRefusesExistingTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := CopyFileVerified(src, dst)
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "old" {
		t.Fatalf("existing target was modified: %q", got)
	}
}

func TestHashFileStable(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	if err := os.WriteFile(a, []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	ha, err := HashFile(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := HashFile(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Fatalf("expected identical digests, got %s and %s", ha, hb)
	}
	if len(ha) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(ha))
	}
}

func TestMoveNoReplace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "sub", "dst.jpg")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	copied, err := MoveNoReplace(src, dst)
	if err != nil {
		t.Fatalf("MoveNoReplace: %v", err)
	}
	if copied {
		t.Fatal("expected same-device rename, not copy")
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected source to be gone, got %v", err)
	}
	if got, _ := os.ReadFile(dst); string(got) != "payload" {
		t.Fatalf("unexpected target content %q", got)
	}
}

func TestMoveNoReplaceKeepsExistingTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := MoveNoReplace(src, dst)
	if !errors.Is(err, ErrTargetExists) {
		t.Fatalf("expected ErrTargetExists, got %v", err)
	}
	if got, _ := os.ReadFile(dst); string(got) != "old" {
		t.Fatalf("target overwritten: %q", got)
	}
	if got, _ := os.ReadFile(src); string(got) != "new" {
		t.Fatalf("source lost: %q", got)
	}
}

func TestCopyThenRemoveUndoesCopyWhenSourceStays(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "other", "dst.jpg")
	if err := os.WriteFile(src, []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}

	denied := errors.New("permission denied")
	err := copyThenRemove(src, dst, func(string) error { return denied })
	if !errors.Is(err, denied) {
		t.Fatalf("expected remove error, got %v", err)
	}
	if _, err := os.Stat(dst); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("copy should be removed again, stat err=%v", err)
	}
	if data, err := os.ReadFile(src); err != nil || string(data) != "pixels" {
		t.Fatalf("source damaged: %q %v", data, err)
	}

	if err := copyThenRemove(src, dst, os.Remove); err != nil {
		t.Fatalf("copyThenRemove: %v", err)
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("source should be gone, stat err=%v", err)
	}
}

func TestCopyThenRemoveRefusesExistingTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	for _, path := range []string{src, dst} {
		if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := copyThenRemove(src, dst, os.Remove); !errors.Is(err, ErrTargetExists) {
		t.Fatalf("expected ErrTargetExists, got %v", err)
	}
	if data, _ := os.ReadFile(dst); string(data) != "dst.jpg" {
		t.Fatalf("existing target overwritten: %q", data)
	}
}

func TestPathKeyCanonicalizes(t *testing.T) {
	dir := t.TempDir()
	decomposed := filepath.Join(dir, "cafe\u0301", ".", "x.jpg")
	composed := filepath.Join(dir, "caf\u00e9", "x.jpg")

	a, err := PathKey(decomposed)
	if err != nil {
		t.Fatal(err)
	}
	b, err := PathKey(composed)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("expected identical keys, got %q and %q", a, b)
	}
	if !norm.NFC.IsNormalString(a) {
		t.Fatalf("key not NFC: %q", a)
	}
	if !filepath.IsAbs(a) {
		t.Fatalf("key not absolute: %q", a)
	}
}

func TestPathKeyRelative(t *testing.T) {
	key, err := PathKey("photos/../photos/a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(key, string(filepath.Separator)+filepath.Join("photos", "a.jpg")) {
		t.Fatalf("unexpected key %q", key)
	}
	if _, err := PathKey(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestDirPrefix(t *testing.T) {
	prefix, err := DirPrefix("/photos/2020")
	if err != nil {
		t.Fatal(err)
	}
	if prefix != "/photos/2020/" {
		t.Fatalf("unexpected prefix %q", prefix)
	}
	root, err := DirPrefix("/")
	if err != nil {
		t.Fatal(err)
	}
	if root != "/" {
		t.Fatalf("unexpected root prefix %q", root)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	ok, err := Exists(filepath.Join(dir, "missing"))
	if err != nil || ok {
		t.Fatalf("expected missing, got %v %v", ok, err)
	}
	ok, err = Exists(dir)
	if err != nil || !ok {
		t.Fatalf("expected present, got %v %v", ok, err)
	}
}
