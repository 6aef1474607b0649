package placement_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"shutter/internal/logging"
	"shutter/internal/placement"
	"shutter/internal/testsupport"
)

func TestTrashMoveNeverOverwrites(t *testing.T) {
	base := t.TempDir()
	trashDir := filepath.Join(base, "trash")
	first := filepath.Join(base, "a", "dup.jpg")
	second := filepath.Join(base, "b", "dup.jpg")
	testsupport.WriteFile(t, first, 10)
	testsupport.WriteFile(t, second, 20)

	trash := placement.NewTrash(trashDir, true, false, logging.NewNop())
	ctx := context.Background()
	got1, err := trash.Move(ctx, first)
	if err != nil {
		t.Fatalf("Move first: %v", err)
	}
	got2, err := trash.Move(ctx, second)
	if err != nil {
		t.Fatalf("Move second: %v", err)
	}
	if got1 != filepath.Join(trashDir, "dup.jpg") || got2 != filepath.Join(trashDir, "dup-1.jpg") {
		t.Fatalf("unexpected trash names %q, %q", got1, got2)
	}
	info, err := os.Stat(got1)
	if err != nil || info.Size() != 10 {
		t.Fatalf("first trashed file changed: %v %v", info, err)
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, got %v", err)
	}
}

func TestTrashInactiveIsNoop(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "dup.jpg")
	testsupport.WriteFile(t, src, 10)

	for _, trash := range []*placement.Trash{
		placement.NewTrash(filepath.Join(base, "trash"), false, false, logging.NewNop()),
		placement.NewTrash(filepath.Join(base, "trash"), true, true, logging.NewNop()),
	} {
		got, err := trash.Move(context.Background(), src)
		if err != nil || got != "" {
			t.Fatalf("expected no-op, got %q, %v", got, err)
		}
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should remain: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "trash")); !os.IsNotExist(err) {
		t.Fatalf("trash dir should not be created, got %v", err)
	}
}
