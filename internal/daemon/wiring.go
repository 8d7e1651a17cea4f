package daemon

import (
	"log/slog"

	"sam/internal/config"
	"sam/internal/media"
)

// NewCompressor builds the per-image compressor from the media settings.
func NewCompressor(cfg *config.Config, logger *slog.Logger) *media.Compressor {
	return media.NewCompressor(media.Ladder{
		Start:    cfg.Media.CompressQuality,
		Step:     cfg.Media.QualityStep,
		Floor:    cfg.Media.QualityFloor,
		MaxBytes: cfg.Media.MaxBytes(),
	}, logger)
}

// NewComposer builds the mosaic composer from the media settings.
func NewComposer(cfg *config.Config, logger *slog.Logger) *media.Composer {
	return media.NewComposer(media.MosaicOptions{
		Columns:    cfg.Media.MosaicColumns,
		CellWidth:  cfg.Media.CellWidth,
		CellHeight: cfg.Media.CellHeight,
		Ladder: media.Ladder{
			Start:    cfg.Media.MosaicQuality,
			Step:     cfg.Media.QualityStep,
			Floor:    cfg.Media.QualityFloor,
			MaxBytes: cfg.Media.MaxBytes(),
		},
	}, logger)
}
