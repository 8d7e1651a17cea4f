package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"mime"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"sam/internal/services"
)

// Info summarizes an image without decoding its pixels.
type Info struct {
	Format string
	Width  int
	Height int
	Bytes  int64
	MIME   string
}

// Probe reads the image header at path.
func Probe(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, services.Wrap(services.ErrIO, "media", "read image", path, err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, services.Wrap(services.ErrEncode, "media", "decode image header", path, err)
	}
	return Info{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Bytes:  int64(len(data)),
		MIME:   mimetype.Detect(data).String(),
	}, nil
}

// DecodeFile decodes the image stored at path.
func DecodeFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "media", "read image", path, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, services.Wrap(services.ErrEncode, "media", "decode image", path, err)
	}
	return img, nil
}

// ExtensionFor returns the file extension, without the leading dot, for a
// chat attachment. The declared MIME type wins; when it is missing or
// unknown the content is sniffed. Unrecognized payloads map to "bin".
func ExtensionFor(mimeType string, data []byte) string {
	if mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(mimeType)); err == nil {
		if known := mimetype.Lookup(strings.ToLower(mediaType)); known != nil {
			if ext := strings.TrimPrefix(known.Extension(), "."); ext != "" {
				return ext
			}
		}
	}
	if len(data) > 0 {
		if ext := strings.TrimPrefix(mimetype.Detect(data).Extension(), "."); ext != "" {
			return ext
		}
	}
	return "bin"
}

// IsImageExtension reports whether ext names a format the Compressor can
// decode.
func IsImageExtension(ext string) bool {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg", "png", "gif", "webp", "bmp":
		return true
	default:
		return false
	}
}

func validateLadder(start, step, floor int) error {
	if start < 1 || start > 100 {
		return fmt.Errorf("start quality %d out of range", start)
	}
	if floor < 1 || floor > start {
		return fmt.Errorf("floor quality %d out of range", floor)
	}
	if step < 1 {
		return fmt.Errorf("quality step %d must be positive", step)
	}
	return nil
}
