package metadata

import (
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// Matches YYYY?MM?DD?HH?MM?SS with at most one separator between fields, as
// produced by most phone cameras and messengers.
var filenameTimePattern = regexp.MustCompile(`(\d{4})\D?(\d{2})\D?(\d{2})\D?(\d{2})\D?(\d{2})\D?(\d{2})`)

// TimeFromFilename extracts a capture time embedded in the base name of path.
// Candidates that do not survive a round trip through time.Date (month 13,
// Feb 30, hour 25) are rejected, and scanning continues with the next match.
func TimeFromFilename(path string) (time.Time, bool) {
	name := filepath.Base(path)
	for _, m := range filenameTimePattern.FindAllStringSubmatch(name, -1) {
		fields := make([]int, 6)
		for i := range fields {
			fields[i], _ = strconv.Atoi(m[i+1])
		}
		year, month, day, hour, minute, second := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]
		if year < 1900 {
			continue
		}
		t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
		if t.Year() != year || int(t.Month()) != month || t.Day() != day ||
			t.Hour() != hour || t.Minute() != minute || t.Second() != second {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}
