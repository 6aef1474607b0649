package index_test

import (
	"context"
	"path/filepath"
	"testing"

	"shutter/internal/index"
	"shutter/internal/testsupport"
)

func TestCacheContainsOnlyCompleteRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	dir := filepath.Join(testsupport.BaseDir(cfg), "photos")

	complete := filepath.Join(dir, "a.jpg")
	partial := filepath.Join(dir, "b.jpg")
	sibling := filepath.Join(dir+"2", "c.jpg")
	for _, rec := range []index.Record{
		{Path: complete, ContentHash: "h", Signature: "p:1"},
		{Path: partial, ContentHash: "h2"},
		{Path: sibling, ContentHash: "h3", Signature: "p:3"},
	} {
		if err := store.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	cache, err := index.LoadCache(ctx, store, dir)
	if err != nil {
		t.Fatalf("LoadCache: %v", err)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected sibling directory excluded, got %d records", cache.Len())
	}
	if !cache.Contains(complete) {
		t.Fatal("expected complete record to be contained")
	}
	if !cache.Contains(filepath.Join(dir, "sub", "..", "a.jpg")) {
		t.Fatal("expected lookup through an unclean spelling to hit")
	}
	if cache.Contains(partial) {
		t.Fatal("expected incomplete record to be treated as not indexed")
	}
	if _, ok := cache.Lookup(partial); !ok {
		t.Fatal("expected Lookup to still see the incomplete record")
	}
	if cache.Contains(filepath.Join(dir, "missing.jpg")) {
		t.Fatal("expected unknown path to be absent")
	}
	var nilCache *index.Cache
	if nilCache.Contains(complete) {
		t.Fatal("nil cache must contain nothing")
	}
}
