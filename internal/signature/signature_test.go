package signature_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shutter/internal/fileutil"
	"shutter/internal/services"
	"shutter/internal/signature"
	"shutter/internal/testsupport"
)

func TestSignatureOfIdenticalImages(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	c := filepath.Join(dir, "c.png")
	testsupport.WriteImage(t, a, 1)
	testsupport.WriteImage(t, b, 1)
	testsupport.WriteImage(t, c, 2)

	hasher := signature.NewHasher()
	ctx := context.Background()
	sigA, err := hasher.SignatureOf(ctx, a)
	if err != nil {
		t.Fatalf("SignatureOf a: %v", err)
	}
	sigB, err := hasher.SignatureOf(ctx, b)
	if err != nil {
		t.Fatalf("SignatureOf b: %v", err)
	}
	sigC, err := hasher.SignatureOf(ctx, c)
	if err != nil {
		t.Fatalf("SignatureOf c: %v", err)
	}

	if sigA != sigB {
		t.Fatalf("expected identical files to share a signature: %+v vs %+v", sigA, sigB)
	}
	if sigA.Perceptual == sigC.Perceptual {
		t.Fatalf("expected different patterns to differ, both %q", sigA.Perceptual)
	}
	if !strings.HasPrefix(sigA.Perceptual, "p:") {
		t.Fatalf("unexpected perceptual format %q", sigA.Perceptual)
	}

	want, err := fileutil.HashFile(a)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if sigA.ContentHash != want {
		t.Fatalf("content hash mismatch: %s vs %s", sigA.ContentHash, want)
	}
}

func TestSignatureSurvivesReencode(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "a.png")
	jpg := filepath.Join(dir, "a.jpg")
	testsupport.WriteImage(t, png, 7)
	testsupport.WriteImage(t, jpg, 7)

	hasher := signature.NewHasher()
	ctx := context.Background()
	sigPNG, err := hasher.SignatureOf(ctx, png)
	if err != nil {
		t.Fatalf("SignatureOf png: %v", err)
	}
	sigJPG, err := hasher.SignatureOf(ctx, jpg)
	if err != nil {
		t.Fatalf("SignatureOf jpg: %v", err)
	}
	if sigPNG.ContentHash == sigJPG.ContentHash {
		t.Fatal("expected different bytes to hash differently")
	}
	dist, err := signature.Distance(sigPNG.Perceptual, sigJPG.Perceptual)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if dist > 10 {
		t.Fatalf("expected near-identical perceptual hashes, distance %d", dist)
	}
}

func TestSignatureOfCorruptMedia(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.jpg")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	hasher := signature.NewHasher()
	for _, path := range []string{bad, filepath.Join(dir, "missing.jpg")} {
		_, err := hasher.SignatureOf(context.Background(), path)
		if !errors.Is(err, signature.ErrCorruptMedia) {
			t.Fatalf("expected ErrCorruptMedia for %s, got %v", path, err)
		}
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation marker for %s, got %v", path, err)
		}
	}
}

func TestSignatureOfCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := signature.NewHasher().SignatureOf(ctx, "whatever.jpg"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDistanceRejectsGarbage(t *testing.T) {
	if _, err := signature.Distance("p:00", "nonsense"); err == nil {
		t.Fatal("expected parse error")
	}
	d, err := signature.Distance("p:00000000000000ff", "p:0000000000000000")
	if err != nil || d != 8 {
		t.Fatalf("Distance = %d, %v", d, err)
	}
}
