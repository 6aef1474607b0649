package duplicates

import (
	"fmt"
	"strings"

	"shutter/internal/placement"
)

// KeepPolicy decides which member of a group survives.
type KeepPolicy string

const (
	// KeepOldest keeps the earliest-modified file, ties broken by path.
	KeepOldest KeepPolicy = "oldest"
	// KeepCanonical keeps a file already in the canonical layout, falling
	// back to KeepOldest.
	KeepCanonical KeepPolicy = "canonical"
)

// ParseKeepPolicy maps a config or flag value to a KeepPolicy. Empty means
// KeepCanonical.
func ParseKeepPolicy(value string) (KeepPolicy, error) {
	switch KeepPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", KeepCanonical:
		return KeepCanonical, nil
	case KeepOldest:
		return KeepOldest, nil
	default:
		return "", fmt.Errorf("unknown keep policy %q (want oldest or canonical)", value)
	}
}

// choose returns the path to keep. Members that could not be stat'ed are only
// chosen when nothing else is available.
func (p KeepPolicy) choose(members []Member) string {
	var candidates []Member
	for _, m := range members {
		if m.Err == nil {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		candidates = members
	}
	if p == KeepCanonical {
		var canonical []Member
		for _, m := range candidates {
			if placement.IsCanonicalPath(m.Path) {
				canonical = append(canonical, m)
			}
		}
		if len(canonical) > 0 {
			candidates = canonical
		}
	}
	return oldest(candidates)
}

func oldest(members []Member) string {
	if len(members) == 0 {
		return ""
	}
	best := members[0]
	for _, m := range members[1:] {
		switch {
		case m.ModTime.Before(best.ModTime):
			best = m
		case m.ModTime.Equal(best.ModTime) && m.Path < best.Path:
			best = m
		}
	}
	return best.Path
}
