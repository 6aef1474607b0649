package filters_test

import (
	"bytes"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"shutter/internal/filters"
)

func TestMatchesSemantics(t *testing.T) {
	cases := []struct {
		name    string
		f       filters.Filters
		want    bool
		subject string
	}{
		{"include hit", filters.Filters{Path: []string{"b"}}, true, "/a/b.jpg"},
		{"exclude hit", filters.Filters{PathExclude: []string{"b"}}, false, "/a/b.jpg"},
		{"no constraints", filters.Filters{}, true, "/a/b.jpg"},
		{"include miss", filters.Filters{Path: []string{"zzz"}}, false, "/a/b.jpg"},
		{"any include wins", filters.Filters{Path: []string{"zzz", "/a"}}, true, "/a/b.jpg"},
		{"exclude beats include", filters.Filters{Path: []string{"/a"}, PathExclude: []string{"b.jpg"}}, false, "/a/b.jpg"},
		{"case sensitive", filters.Filters{Path: []string{"B"}}, false, "/a/b.jpg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.f.MatchPath(tc.subject); got != tc.want {
				t.Fatalf("MatchPath(%q) = %v, want %v", tc.subject, got, tc.want)
			}
		})
	}
}

func TestMatchFileUsesFileGroups(t *testing.T) {
	f := filters.Filters{Path: []string{"nowhere"}, File: []string{"IMG_"}, FileExclude: []string{"_edit"}}
	if !f.MatchFile("IMG_0001.jpg") {
		t.Fatal("expected file include to match")
	}
	if f.MatchFile("IMG_0001_edit.jpg") {
		t.Fatal("expected file exclude to reject")
	}
	if f.MatchFile("DSC_0001.jpg") {
		t.Fatal("expected file include miss to reject")
	}
}

func TestTraceLogsEachFilterAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := filters.Filters{File: []string{"IMG_"}, FileExclude: []string{"_edit"}}

	if f.Trace(logger, filters.GroupFile, "IMG_0001_edit.jpg") {
		t.Fatal("expected exclude to reject")
	}
	out := buf.String()
	if strings.Count(out, "filter evaluated") != 2 {
		t.Fatalf("expected one line per filter, got %q", out)
	}
	if !strings.Contains(out, "group=file_exclude") {
		t.Fatalf("expected exclude group in output, got %q", out)
	}
	if !f.Trace(nil, filters.GroupPath, "/anywhere/") {
		t.Fatal("expected empty path groups to pass")
	}
}

func TestSetRecognizesGroups(t *testing.T) {
	var f filters.Filters
	for _, group := range []string{filters.GroupPath, filters.GroupPathExclude, filters.GroupFile, filters.GroupFileExclude} {
		if !f.Set(group, []string{"x", "", "x", "y"}) {
			t.Fatalf("expected group %q to be recognized", group)
		}
	}
	if f.Set("bogus", []string{"x"}) {
		t.Fatal("expected unknown group to be rejected")
	}
	if !reflect.DeepEqual(f.FileExclude, []string{"x", "y"}) {
		t.Fatalf("unexpected cleaned values: %v", f.FileExclude)
	}
	if f.IsZero() {
		t.Fatal("expected populated filters")
	}
	if !(filters.Filters{}).IsZero() {
		t.Fatal("expected empty filters to be zero")
	}
}

func TestPredicateCompilesParameterized(t *testing.T) {
	f := filters.Filters{
		Path:        []string{"2020", "100%"},
		PathExclude: []string{"trash"},
		FileExclude: []string{"thumb_"},
	}
	clause, args := f.Predicate("i")
	want := `(i.path LIKE ? ESCAPE '\' OR i.path LIKE ? ESCAPE '\') AND i.path NOT LIKE ? ESCAPE '\' AND i.name NOT LIKE ? ESCAPE '\'`
	if clause != want {
		t.Fatalf("unexpected clause:\n got %s\nwant %s", clause, want)
	}
	wantArgs := []any{"%2020%", `%100\%%`, "%trash%", `%thumb\_%`}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestPredicateEmptyForZeroFilters(t *testing.T) {
	clause, args := filters.Filters{}.Predicate("")
	if clause != "" || args != nil {
		t.Fatalf("expected empty predicate, got %q %v", clause, args)
	}
}

func TestPredicateSingleIncludeHasNoParens(t *testing.T) {
	clause, _ := filters.Filters{File: []string{"IMG"}}.Predicate("")
	if clause != `name LIKE ? ESCAPE '\'` {
		t.Fatalf("unexpected clause %q", clause)
	}
}
