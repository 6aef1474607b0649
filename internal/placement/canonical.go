package placement

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// NameLayout is the time layout of a canonical file name, without extension.
	NameLayout = "2006-01-02_15'04'05"
	// CanonicalExt is the extension every placed file receives.
	CanonicalExt = ".jpg"
)

var yearMonthPattern = regexp.MustCompile(`(?i)[0-9]{4}/(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)

// CanonicalName returns the file name for a capture time.
func CanonicalName(t time.Time) string {
	return t.Format(NameLayout) + CanonicalExt
}

// CanonicalDir returns the directory a photo taken at t belongs in. A base that
// already contains a year/month segment is used as is.
func CanonicalDir(base string, t time.Time) string {
	base = strings.ReplaceAll(filepath.ToSlash(base), "//", "/")
	if yearMonthPattern.MatchString(base) {
		return filepath.Clean(filepath.FromSlash(base))
	}
	return filepath.Join(filepath.FromSlash(base), t.Format("2006"), t.Format("Jan"))
}

// CanonicalPath joins CanonicalDir and CanonicalName.
func CanonicalPath(base string, t time.Time) string {
	return filepath.Join(CanonicalDir(base, t), CanonicalName(t))
}

// IsCanonicalPath reports whether path already sits in the canonical layout:
// a YYYY/Mon directory holding a name whose timestamp matches both segments.
func IsCanonicalPath(path string) bool {
	name := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(name), CanonicalExt) {
		return false
	}
	t, err := time.ParseInLocation(NameLayout, strings.TrimSuffix(name, filepath.Ext(name)), time.Local)
	if err != nil {
		return false
	}
	monthDir := filepath.Dir(path)
	yearDir := filepath.Dir(monthDir)
	return filepath.Base(monthDir) == t.Format("Jan") && filepath.Base(yearDir) == t.Format("2006")
}
