package media

import (
	"context"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"runtime"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"sam/internal/fileutil"
	"sam/internal/logging"
	"sam/internal/services"
)

// ErrNoImages is returned when a mosaic is requested without source images.
var ErrNoImages = errors.New("no images to compose")

// MosaicOptions configures a Composer.
type MosaicOptions struct {
	Columns    int
	CellWidth  int
	CellHeight int
	Ladder     Ladder
}

// MosaicResult describes a written mosaic.
type MosaicResult struct {
	Result
	Layout GridLayout
	Path   string
}

// Composer tiles images into a single size-bounded JPEG.
type Composer struct {
	opts   MosaicOptions
	logger *slog.Logger
}

// NewComposer returns a composer using opts.
func NewComposer(opts MosaicOptions, logger *slog.Logger) *Composer {
	return &Composer{opts: opts, logger: logging.NewComponentLogger(logger, "mosaic")}
}

// Compose resizes every image to a cell with cover fit, lays them out
// row-major on a black canvas, and writes the accepted JPEG to out. No file is
// written when any image fails to decode or the encode fails.
func (c *Composer) Compose(ctx context.Context, images []string, out string) (MosaicResult, error) {
	if len(images) == 0 {
		return MosaicResult{}, services.Wrap(services.ErrUserInput, "media", "compose", "no images in session", ErrNoImages)
	}
	if err := validateLadder(c.opts.Ladder.Start, c.opts.Ladder.Step, c.opts.Ladder.Floor); err != nil {
		return MosaicResult{}, services.Wrap(services.ErrEncode, "media", "compose", "invalid quality ladder", err)
	}
	if c.opts.CellWidth <= 0 || c.opts.CellHeight <= 0 {
		return MosaicResult{}, services.Wrap(services.ErrEncode, "media", "compose", "invalid cell size", nil)
	}

	layout := NewGridLayout(len(images), c.opts.Columns, c.opts.CellWidth, c.opts.CellHeight)
	tiles := make([]*image.RGBA, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := DecodeFile(path)
			if err != nil {
				return err
			}
			tiles[i] = CoverFit(img, layout.CellWidth, layout.CellHeight)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return MosaicResult{}, err
	}

	canvas := image.NewRGBA(layout.Bounds())
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	for i, tile := range tiles {
		draw.Draw(canvas, layout.Cell(i), tile, image.Point{}, draw.Src)
	}

	var (
		accepted []byte
		result   Result
	)
	for quality := c.opts.Ladder.Start; ; quality -= c.opts.Ladder.Step {
		if quality < c.opts.Ladder.Floor {
			quality = c.opts.Ladder.Floor
		}
		if err := ctx.Err(); err != nil {
			return MosaicResult{}, err
		}
		data, err := encodeJPEG(canvas, quality)
		if err != nil {
			return MosaicResult{}, err
		}
		accepted = data
		result = Result{Quality: quality, Bytes: int64(len(data)), Attempts: result.Attempts + 1}
		if c.opts.Ladder.MaxBytes <= 0 || result.Bytes <= c.opts.Ladder.MaxBytes || quality <= c.opts.Ladder.Floor {
			break
		}
	}

	if err := fileutil.WriteFileAtomic(out, accepted, 0o644); err != nil {
		return MosaicResult{}, services.Wrap(services.ErrIO, "media", "write mosaic", out, err)
	}

	logging.WithContext(ctx, c.logger).Info("mosaic composed",
		logging.String("output", out),
		logging.Int("images", len(images)),
		logging.Int("width", layout.Width()),
		logging.Int("height", layout.Height()),
		logging.Int("quality", result.Quality),
		logging.Int64("bytes", result.Bytes),
		logging.String(logging.FieldEventType, "mosaic_composed"),
	)
	return MosaicResult{Result: result, Layout: layout, Path: out}, nil
}

// CoverFit scales src to fill width by height, cropping the centered
// overflow.
func CoverFit(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}

	// Crop the source to the destination aspect ratio before scaling.
	crop := b
	if sw*height > sh*width {
		cw := sh * width / height
		x0 := b.Min.X + (sw-cw)/2
		crop = image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	} else if sw*height < sh*width {
		ch := sw * height / width
		y0 := b.Min.Y + (sh-ch)/2
		crop = image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}
