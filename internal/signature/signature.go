package signature

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/corona10/goimagehash"
	"github.com/zeebo/blake3"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"shutter/internal/services"
)

// ErrCorruptMedia marks files that cannot be opened or decoded as images.
// Callers skip such files and continue.
var ErrCorruptMedia = errors.New("corrupt media")

// Signature holds the digests stored for one file.
type Signature struct {
	ContentHash string
	Perceptual  string
}

// Service computes signatures for files on disk.
type Service interface {
	SignatureOf(ctx context.Context, path string) (Signature, error)
}

// Hasher is the default Service: BLAKE3 for content and a DCT perception hash
// for pixels.
type Hasher struct{}

// NewHasher returns a Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// SignatureOf reads path once, hashing the bytes while the image decodes.
func (h *Hasher) SignatureOf(ctx context.Context, path string) (Signature, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return Signature{}, err
		}
	}
	file, err := os.Open(path)
	if err != nil {
		return Signature{}, corrupt("open", path, err)
	}
	defer file.Close()

	digest := blake3.New()
	reader := io.TeeReader(file, digest)
	img, _, err := image.Decode(reader)
	if err != nil {
		return Signature{}, corrupt("decode", path, err)
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return Signature{}, corrupt("read", path, err)
	}

	phash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return Signature{}, corrupt("perception hash", path, err)
	}
	return Signature{
		ContentHash: hex.EncodeToString(digest.Sum(nil)),
		Perceptual:  phash.ToString(),
	}, nil
}

// Distance returns the Hamming distance between two perceptual signatures.
func Distance(a, b string) (int, error) {
	ha, err := goimagehash.ImageHashFromString(a)
	if err != nil {
		return 0, fmt.Errorf("parse signature %q: %w", a, err)
	}
	hb, err := goimagehash.ImageHashFromString(b)
	if err != nil {
		return 0, fmt.Errorf("parse signature %q: %w", b, err)
	}
	return ha.Distance(hb)
}

func corrupt(operation, path string, err error) error {
	return services.Wrap(services.ErrValidation, "signature", operation, path, fmt.Errorf("%w: %w", ErrCorruptMedia, err))
}
