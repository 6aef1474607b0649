package placement

import (
	"errors"
	"fmt"

	"shutter/internal/services"
)

var (
	// ErrMove marks a failed rename or cross-device copy during commit.
	ErrMove = errors.New("move failed")
	// ErrPlacementExhausted marks a source whose collision probe ran past MaxProbe.
	ErrPlacementExhausted = errors.New("placement probe exhausted")
	// ErrNoCaptureTime marks a source with neither an EXIF nor a file name timestamp.
	ErrNoCaptureTime = errors.New("no capture time")
)

func moveError(operation, subject string, err error) error {
	return services.Wrap(services.ErrTransient, "placement", operation, subject, fmt.Errorf("%w: %w", ErrMove, err))
}
