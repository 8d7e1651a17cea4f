package media

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"log/slog"
	"os"

	"sam/internal/logging"
	"sam/internal/services"
)

// Ladder describes a JPEG quality search.
type Ladder struct {
	Start    int
	Step     int
	Floor    int
	MaxBytes int64
}

// Result reports the accepted attempt of a quality ladder.
type Result struct {
	Quality  int
	Bytes    int64
	Attempts int
}

// Compressor re-encodes images as JPEG under a byte budget.
type Compressor struct {
	ladder Ladder
	logger *slog.Logger
}

// NewCompressor returns a compressor using ladder.
func NewCompressor(ladder Ladder, logger *slog.Logger) *Compressor {
	return &Compressor{ladder: ladder, logger: logging.NewComponentLogger(logger, "compressor")}
}

// Compress decodes in and writes a JPEG to out, lowering quality until the
// file fits the budget or the floor is reached. out is overwritten on every
// attempt; the file left behind is the accepted one.
func (c *Compressor) Compress(ctx context.Context, in, out string) (Result, error) {
	if err := validateLadder(c.ladder.Start, c.ladder.Step, c.ladder.Floor); err != nil {
		return Result{}, services.Wrap(services.ErrEncode, "media", "compress", "invalid quality ladder", err)
	}
	img, err := DecodeFile(in)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for quality := c.ladder.Start; ; quality -= c.ladder.Step {
		if quality < c.ladder.Floor {
			quality = c.ladder.Floor
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		size, err := writeJPEG(out, img, quality)
		if err != nil {
			return result, err
		}
		result = Result{Quality: quality, Bytes: size, Attempts: result.Attempts + 1}
		if c.ladder.MaxBytes <= 0 || size <= c.ladder.MaxBytes || quality <= c.ladder.Floor {
			break
		}
	}

	logging.WithContext(ctx, c.logger).Debug("image compressed",
		logging.String("input", in),
		logging.String("output", out),
		logging.Int("quality", result.Quality),
		logging.Int64("bytes", result.Bytes),
		logging.Int("attempts", result.Attempts),
		logging.String(logging.FieldEventType, "image_compressed"),
	)
	return result, nil
}

func writeJPEG(path string, img image.Image, quality int) (int64, error) {
	data, err := encodeJPEG(img, quality)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, services.Wrap(services.ErrIO, "media", "write jpeg", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, services.Wrap(services.ErrIO, "media", "stat jpeg", path, err)
	}
	return info.Size(), nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, services.Wrap(services.ErrEncode, "media", "encode jpeg", "", err)
	}
	return buf.Bytes(), nil
}
