package fileutil

import (
	"fmt"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// PathKey returns the single canonical form used to store and compare paths:
// absolute, lexically cleaned, and Unicode NFC. The index never stores any
// other spelling of a path.
func PathKey(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}
	return norm.NFC.String(filepath.Clean(abs)), nil
}

// DirPrefix returns the PathKey of dir with a trailing separator, suitable for
// prefix queries that must not match sibling directories sharing a name prefix.
func DirPrefix(dir string) (string, error) {
	key, err := PathKey(dir)
	if err != nil {
		return "", err
	}
	if key == string(filepath.Separator) {
		return key, nil
	}
	return key + string(filepath.Separator), nil
}
