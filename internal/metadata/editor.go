package metadata

import (
	"context"
	"errors"
	"time"
)

// ErrMetadataMutation marks a failed metadata write.
var ErrMetadataMutation = errors.New("metadata mutation failed")

// ExifTimeLayout is the EXIF date format.
const ExifTimeLayout = "2006:01:02 15:04:05"

// Editor reads and mutates the capture metadata of a file.
type Editor interface {
	// ReadCaptureTime returns the capture time, preferring DateTimeDigitized,
	// then DateTimeOriginal, then DateTime. ok is false when none is present.
	ReadCaptureTime(ctx context.Context, path string) (t time.Time, ok bool, err error)
	// WriteCaptureTime sets every EXIF date of the file to t.
	WriteCaptureTime(ctx context.Context, path string, t time.Time) error
	// AppendNote appends an audit note to the file comment.
	AppendNote(ctx context.Context, path, note string) error
	// ClearNote reverts the last AppendNote on path.
	ClearNote(ctx context.Context, path string) error
}
