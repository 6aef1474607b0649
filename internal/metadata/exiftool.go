package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"

	"shutter/internal/logging"
	"shutter/internal/services"
)

const (
	tagAllDates = "AllDates"
	tagComment  = "Comment"
)

// captureTimeFields are consulted in order.
var captureTimeFields = []exif.FieldName{
	exif.DateTimeDigitized,
	exif.DateTimeOriginal,
	exif.DateTime,
}

// ExifTool implements Editor. Reads are done in-process; writes go through a
// stay_open exiftool process that is started on first use and stopped by
// Close.
type ExifTool struct {
	binary string
	logger *slog.Logger

	mu       sync.Mutex
	et       *exiftool.Exiftool
	startErr error
	// comments holds the comment each file had before AppendNote so ClearNote
	// can put it back.
	comments map[string]string
}

// NewExifTool returns an editor that launches binary on first write.
func NewExifTool(binary string, logger *slog.Logger) *ExifTool {
	if strings.TrimSpace(binary) == "" {
		binary = "exiftool"
	}
	return &ExifTool{
		binary:   binary,
		logger:   logging.NewComponentLogger(logger, "metadata"),
		comments: make(map[string]string),
	}
}

// ReadCaptureTime implements Editor.
func (e *ExifTool) ReadCaptureTime(ctx context.Context, path string) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		// No EXIF block at all is the common case for screenshots and
		// messenger copies; it is not an error.
		e.logger.Debug("exif decode failed", logging.String(logging.FieldSource, path), logging.Error(err))
		return time.Time{}, false, nil
	}
	for _, field := range captureTimeFields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		raw, err := tag.StringVal()
		if err != nil {
			continue
		}
		t, err := time.ParseInLocation(ExifTimeLayout, strings.TrimSpace(strings.TrimRight(raw, "\x00")), time.Local)
		if err != nil {
			continue
		}
		return t, true, nil
	}
	return time.Time{}, false, nil
}

// WriteCaptureTime implements Editor.
func (e *ExifTool) WriteCaptureTime(ctx context.Context, path string, t time.Time) error {
	return e.write(ctx, "write capture time", path, func(md *exiftool.FileMetadata) {
		md.SetString(tagAllDates, t.Format(ExifTimeLayout))
	})
}

// AppendNote implements Editor.
func (e *ExifTool) AppendNote(ctx context.Context, path, note string) error {
	existing, err := e.readComment(ctx, path)
	if err != nil {
		return err
	}
	comment := note
	if existing != "" {
		comment = existing + "; " + note
	}
	if err := e.write(ctx, "append note", path, func(md *exiftool.FileMetadata) {
		md.SetString(tagComment, comment)
	}); err != nil {
		return err
	}
	e.mu.Lock()
	e.comments[path] = existing
	e.mu.Unlock()
	return nil
}

// ClearNote implements Editor. The comment the file had before the last
// AppendNote is restored; without one the comment is removed.
func (e *ExifTool) ClearNote(ctx context.Context, path string) error {
	e.mu.Lock()
	previous, ok := e.comments[path]
	delete(e.comments, path)
	e.mu.Unlock()

	return e.write(ctx, "clear note", path, func(md *exiftool.FileMetadata) {
		if ok && previous != "" {
			md.SetString(tagComment, previous)
			return
		}
		md.Clear(tagComment)
	})
}

// Close stops the exiftool process if one was started.
func (e *ExifTool) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.et == nil {
		return nil
	}
	err := e.et.Close()
	e.et = nil
	return err
}

func (e *ExifTool) readComment(ctx context.Context, path string) (string, error) {
	et, err := e.process(ctx)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	infos := et.ExtractMetadata(path)
	e.mu.Unlock()
	if len(infos) == 0 {
		return "", mutationError("read comment", path, errors.New("no metadata returned"))
	}
	if infos[0].Err != nil {
		return "", mutationError("read comment", path, infos[0].Err)
	}
	comment, err := infos[0].GetString(tagComment)
	if err != nil {
		return "", nil
	}
	return comment, nil
}

func (e *ExifTool) write(ctx context.Context, operation, path string, mutate func(*exiftool.FileMetadata)) error {
	et, err := e.process(ctx)
	if err != nil {
		return err
	}
	md := exiftool.EmptyFileMetadata()
	md.File = path
	mutate(&md)
	batch := []exiftool.FileMetadata{md}

	e.mu.Lock()
	et.WriteMetadata(batch)
	e.mu.Unlock()

	if batch[0].Err != nil {
		return mutationError(operation, path, batch[0].Err)
	}
	e.logger.Debug("metadata written",
		logging.String(logging.FieldSource, path),
		logging.String("operation", operation),
	)
	return nil
}

// process returns the running exiftool, starting it on first use. A failed
// start is remembered so a missing binary is reported once, not per file.
func (e *ExifTool) process(ctx context.Context) (*exiftool.Exiftool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.et != nil {
		return e.et, nil
	}
	if e.startErr != nil {
		return nil, e.startErr
	}
	et, err := exiftool.NewExiftool(exiftool.SetExiftoolBinaryPath(e.binary))
	if err != nil {
		e.startErr = services.Wrap(services.ErrExternalTool, "metadata", "start exiftool",
			fmt.Sprintf("cannot run %q; install exiftool or set metadata.exiftool_path", e.binary),
			fmt.Errorf("%w: %w", ErrMetadataMutation, err))
		logging.ErrorWithContext(e.logger, "exiftool unavailable", "exiftool_unavailable",
			logging.String("binary", e.binary),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install exiftool or set metadata.exiftool_path / SHUTTER_EXIFTOOL"),
		)
		return nil, e.startErr
	}
	e.et = et
	return et, nil
}

func mutationError(operation, path string, err error) error {
	return services.Wrap(services.ErrExternalTool, "metadata", operation, path, fmt.Errorf("%w: %w", ErrMetadataMutation, err))
}
