package testsupport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shutter/internal/fileutil"
	"shutter/internal/signature"
)

// FakeSignatures is a signature.Service for tests. Paths listed in Signatures
// or Errors return the configured value; any other path gets a signature
// derived from its bytes, so byte-identical files share a signature.
type FakeSignatures struct {
	mu         sync.Mutex
	Signatures map[string]signature.Signature
	Errors     map[string]error
	Calls      []string
}

// NewFakeSignatures returns an empty FakeSignatures.
func NewFakeSignatures() *FakeSignatures {
	return &FakeSignatures{
		Signatures: make(map[string]signature.Signature),
		Errors:     make(map[string]error),
	}
}

// SignatureOf implements signature.Service.
func (f *FakeSignatures) SignatureOf(ctx context.Context, path string) (signature.Signature, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, path)
	err, hasErr := f.Errors[path]
	sig, hasSig := f.Signatures[path]
	f.mu.Unlock()

	if hasErr {
		return signature.Signature{}, err
	}
	if hasSig {
		return sig, nil
	}
	hash, err := fileutil.HashFile(path)
	if err != nil {
		return signature.Signature{}, fmt.Errorf("%w: %w", signature.ErrCorruptMedia, err)
	}
	return signature.Signature{ContentHash: hash, Perceptual: "p:" + hash[:16]}, nil
}

// CallCount returns how many times SignatureOf ran.
func (f *FakeSignatures) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// FakeEditor is an in-memory metadata.Editor.
type FakeEditor struct {
	mu sync.Mutex
	// Times holds the capture time per path; WriteCaptureTime updates it.
	Times map[string]time.Time
	// Notes holds appended notes per path.
	Notes map[string][]string
	// Writes records every WriteCaptureTime call in order.
	Writes []TimeWrite
	// Cleared lists paths passed to ClearNote.
	Cleared []string

	ReadErr   error
	WriteErr  error
	AppendErr error
	// OnAppend runs after a note is recorded, outside the lock.
	OnAppend func(path, note string)
}

// TimeWrite is one recorded WriteCaptureTime call.
type TimeWrite struct {
	Path string
	Time time.Time
}

// NewFakeEditor returns an empty FakeEditor.
func NewFakeEditor() *FakeEditor {
	return &FakeEditor{
		Times: make(map[string]time.Time),
		Notes: make(map[string][]string),
	}
}

// ReadCaptureTime implements metadata.Editor.
func (f *FakeEditor) ReadCaptureTime(_ context.Context, path string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadErr != nil {
		return time.Time{}, false, f.ReadErr
	}
	t, ok := f.Times[path]
	return t, ok, nil
}

// WriteCaptureTime implements metadata.Editor.
func (f *FakeEditor) WriteCaptureTime(_ context.Context, path string, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.Times[path] = t
	f.Writes = append(f.Writes, TimeWrite{Path: path, Time: t})
	return nil
}

// AppendNote implements metadata.Editor.
func (f *FakeEditor) AppendNote(_ context.Context, path, note string) error {
	f.mu.Lock()
	if f.AppendErr != nil {
		f.mu.Unlock()
		return f.AppendErr
	}
	f.Notes[path] = append(f.Notes[path], note)
	hook := f.OnAppend
	f.mu.Unlock()
	if hook != nil {
		hook(path, note)
	}
	return nil
}

// ClearNote implements metadata.Editor.
func (f *FakeEditor) ClearNote(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if notes := f.Notes[path]; len(notes) > 0 {
		f.Notes[path] = notes[:len(notes)-1]
	}
	f.Cleared = append(f.Cleared, path)
	return nil
}

// WriteCount returns the number of recorded capture time writes.
func (f *FakeEditor) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Writes)
}
