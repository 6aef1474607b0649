package index_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"shutter/internal/filters"
	"shutter/internal/index"
	"shutter/internal/logging"
	"shutter/internal/testsupport"
)

func record(path, sig string) index.Record {
	return index.Record{
		Path:        path,
		ContentHash: "hash-" + filepath.Base(path),
		Signature:   sig,
		SizeBytes:   10,
		ModTime:     time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestUpsertGetDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := record("/photos/a.jpg", "p:01")
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := store.Get(ctx, rec.Path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Name != "a.jpg" || got.Signature != "p:01" || !got.ModTime.Equal(rec.ModTime) || got.IndexedAt.IsZero() {
		t.Fatalf("unexpected record: %#v", got)
	}

	rec.Signature = "p:02"
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Fatalf("expected upsert to replace the row, count=%d", n)
	}
	got, _ = store.Get(ctx, rec.Path)
	if got.Signature != "p:02" {
		t.Fatalf("expected updated signature, got %q", got.Signature)
	}

	removed, err := store.Delete(ctx, rec.Path)
	if err != nil || !removed {
		t.Fatalf("Delete = %v, %v", removed, err)
	}
	removed, err = store.Delete(ctx, rec.Path)
	if err != nil || removed {
		t.Fatalf("second Delete = %v, %v", removed, err)
	}
	if got, err := store.Get(ctx, rec.Path); err != nil || got != nil {
		t.Fatalf("expected nil after delete, got %#v err=%v", got, err)
	}
}

func TestListPrefixEscapesWildcards(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, p := range []string{"/a_b/1.jpg", "/a_b/sub/2.jpg", "/axb/3.jpg", "/a_bc/4.jpg"} {
		if err := store.Upsert(ctx, record(p, "p:00")); err != nil {
			t.Fatalf("Upsert %s: %v", p, err)
		}
	}
	rows, err := store.ListPrefix(ctx, "/a_b/")
	if err != nil {
		t.Fatalf("ListPrefix: %v", err)
	}
	if len(rows) != 2 || rows[0].Path != "/a_b/1.jpg" || rows[1].Path != "/a_b/sub/2.jpg" {
		t.Fatalf("unexpected prefix rows: %+v", rows)
	}
}

func TestDuplicateSignatures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rows := []index.Record{
		record("/keep/a.jpg", "p:aa"),
		record("/keep/b.jpg", "p:aa"),
		record("/keep/c.jpg", "p:bb"),
		record("/other/c.jpg", "p:bb"),
		record("/keep/d.jpg", "p:cc"),
		{Path: "/keep/e.jpg", Signature: ""},
		{Path: "/keep/f.jpg", Signature: ""},
	}
	for _, rec := range rows {
		if err := store.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	all, err := store.DuplicateSignatures(ctx, filters.Filters{}, 1000)
	if err != nil {
		t.Fatalf("DuplicateSignatures: %v", err)
	}
	if len(all) != 2 || all[0].Signature != "p:aa" || all[0].Count != 2 || all[1].Signature != "p:bb" {
		t.Fatalf("unexpected groups: %+v", all)
	}

	scoped, err := store.DuplicateSignatures(ctx, filters.Filters{Path: []string{"/keep/"}}, 1000)
	if err != nil {
		t.Fatalf("DuplicateSignatures scoped: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Signature != "p:aa" {
		t.Fatalf("expected only the fully in-scope group, got %+v", scoped)
	}

	limited, err := store.DuplicateSignatures(ctx, filters.Filters{}, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %+v err=%v", limited, err)
	}

	byName, err := store.DuplicateSignatures(ctx, filters.Filters{FileExclude: []string{"b.jpg"}}, 1000)
	if err != nil {
		t.Fatalf("DuplicateSignatures file filter: %v", err)
	}
	if len(byName) != 1 || byName[0].Signature != "p:bb" {
		t.Fatalf("expected file_exclude to break the p:aa group, got %+v", byName)
	}

	paths, err := store.PathsBySignature(ctx, "p:bb")
	if err != nil || len(paths) != 2 {
		t.Fatalf("PathsBySignature = %v, %v", paths, err)
	}
	found, err := store.FindBySignature(ctx, "p:aa")
	if err != nil || len(found) != 2 || found[0].Path != "/keep/a.jpg" {
		t.Fatalf("FindBySignature = %+v, %v", found, err)
	}
}

func TestCaseSensitiveLikeMatchesSubstringFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, p := range []string{"/Photos/a.jpg", "/Photos/b.jpg", "/photos/c.jpg", "/photos/d.jpg"} {
		if err := store.Upsert(ctx, record(p, "p:"+p[1:2])); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	groups, err := store.DuplicateSignatures(ctx, filters.Filters{Path: []string{"/photos/"}}, 10)
	if err != nil {
		t.Fatalf("DuplicateSignatures: %v", err)
	}
	if len(groups) != 1 || groups[0].Signature != "p:p" {
		t.Fatalf("expected case-sensitive match, got %+v", groups)
	}
}

func TestOpenTakesExclusiveLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := testsupport.MustOpenStore(t, cfg)

	if _, err := index.Open(cfg, logging.NewNop()); !errors.Is(err, index.ErrLocked) {
		t.Fatalf("expected ErrLocked for second open, got %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	second, err := index.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("expected reopen after close, got %v", err)
	}
	second.Close()
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if err := store.Upsert(ctx, record("/x/a.jpg", "p:1")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert(ctx, index.Record{Path: "/x/b.jpg"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %+v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("unexpected missing columns: %v", health.MissingColumns)
	}
	if health.TotalRecords != 2 || health.IncompleteCount != 1 {
		t.Fatalf("unexpected counts: %+v", health)
	}
	if health.SchemaVersion != "1" {
		t.Fatalf("unexpected schema version %q", health.SchemaVersion)
	}
}
