package filters

import (
	"context"
	"log/slog"
	"strings"
)

// Group names recognized in configuration.
const (
	GroupPath        = "path"
	GroupPathExclude = "path_exclude"
	GroupFile        = "file"
	GroupFileExclude = "file_exclude"
)

// Filters holds the four substring groups. A nil or empty group places no
// constraint on the candidate.
type Filters struct {
	Path        []string
	PathExclude []string
	File        []string
	FileExclude []string
}

// IsZero reports whether no filter group is configured at all.
func (f Filters) IsZero() bool {
	return len(f.Path) == 0 && len(f.PathExclude) == 0 && len(f.File) == 0 && len(f.FileExclude) == 0
}

// Matches reports whether candidate contains any include substring (or
// include is empty) and contains none of the exclude substrings.
func Matches(candidate string, include, exclude []string) bool {
	return included(candidate, include) && !excluded(candidate, exclude)
}

// MatchPath applies the path and path_exclude groups to a directory path.
func (f Filters) MatchPath(dir string) bool {
	return Matches(dir, f.Path, f.PathExclude)
}

// MatchFile applies the file and file_exclude groups to a file name.
func (f Filters) MatchFile(name string) bool {
	return Matches(name, f.File, f.FileExclude)
}

// Trace is MatchPath or MatchFile with a debug line per filter evaluated.
func (f Filters) Trace(logger *slog.Logger, group, candidate string) bool {
	include, exclude := f.Path, f.PathExclude
	if group == GroupFile {
		include, exclude = f.File, f.FileExclude
	}
	if logger != nil && logger.Enabled(context.Background(), slog.LevelDebug) {
		for _, needle := range include {
			logger.Debug("include filter evaluated",
				slog.String("group", group),
				slog.String("candidate", candidate),
				slog.String("filter", needle),
				slog.Bool("matched", strings.Contains(candidate, needle)),
			)
		}
		for _, needle := range exclude {
			logger.Debug("exclude filter evaluated",
				slog.String("group", group+"_exclude"),
				slog.String("candidate", candidate),
				slog.String("filter", needle),
				slog.Bool("matched", strings.Contains(candidate, needle)),
			)
		}
	}
	return Matches(candidate, include, exclude)
}

// Set assigns the named group. Unknown names report false.
func (f *Filters) Set(group string, values []string) bool {
	cleaned := clean(values)
	switch group {
	case GroupPath:
		f.Path = cleaned
	case GroupPathExclude:
		f.PathExclude = cleaned
	case GroupFile:
		f.File = cleaned
	case GroupFileExclude:
		f.FileExclude = cleaned
	default:
		return false
	}
	return true
}

func included(candidate string, include []string) bool {
	if len(include) == 0 {
		return true
	}
	for _, needle := range include {
		if strings.Contains(candidate, needle) {
			return true
		}
	}
	return false
}

func excluded(candidate string, exclude []string) bool {
	for _, needle := range exclude {
		if strings.Contains(candidate, needle) {
			return true
		}
	}
	return false
}

func clean(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
