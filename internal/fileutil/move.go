package fileutil

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ErrTargetExists is returned when a move would replace an existing file.
var ErrTargetExists = errors.New("target already exists")

// MoveNoReplace renames src to dst without ever replacing an existing dst.
// Cross-device moves fall back to a verified copy followed by removal of src.
// The returned bool reports whether the copy fallback was used.
func MoveNoReplace(src, dst string) (bool, error) {
	err := renameNoReplace(src, dst)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, os.ErrExist) {
		return false, fmt.Errorf("%w: %s", ErrTargetExists, dst)
	}

	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		return true, copyThenRemove(src, dst, os.Remove)
	}
	return false, err
}

// copyThenRemove copies src to dst and removes src. If src cannot be removed
// the copy is deleted again, so the file only ever exists at one of the two
// paths once this returns.
func copyThenRemove(src, dst string, remove func(string) error) error {
	if err := CopyFileVerified(src, dst); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrTargetExists, dst)
		}
		return fmt.Errorf("copy across devices: %w", err)
	}
	if err := remove(src); err != nil {
		if undoErr := os.Remove(dst); undoErr != nil {
			return fmt.Errorf("remove source after copy: %w (copy left at %s: %v)", err, dst, undoErr)
		}
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

func linkThenUnlink(src, dst string) error {
	if err := os.Link(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: err}
	}
	return nil
}
