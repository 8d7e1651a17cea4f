package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sam/internal/daemon"
	"sam/internal/media"
	"sam/internal/session"
)

func newMosaicCommand(ctx *commandContext) *cobra.Command {
	var (
		outPath string
		columns int
	)

	cmd := &cobra.Command{
		Use:   "mosaic <dir>",
		Short: "Compose the images in a directory into a mosaic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := args[0]
			images, err := session.ScanImages(dir)
			if err != nil {
				return fmt.Errorf("scan %s: %w", dir, err)
			}
			target := strings.TrimSpace(outPath)
			if target == "" {
				target = filepath.Join(dir, session.MosaicFileName)
			}
			if columns > 0 {
				cfg.Media.MosaicColumns = columns
			}

			result, err := daemon.NewComposer(cfg, nil).Compose(cmd.Context(), images, target)
			if errors.Is(err, media.ErrNoImages) {
				return fmt.Errorf("no images found in %s", dir)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d images, %dx%d, quality %d, %d KB)\n",
				result.Path, result.Layout.Count, result.Layout.Width(), result.Layout.Height(),
				result.Quality, result.Bytes/1024)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path (defaults to <dir>/mosaic.jpg)")
	cmd.Flags().IntVar(&columns, "cols", 0, "Number of columns (defaults to media.mosaic_columns)")
	return cmd
}

func newCompressCommand(ctx *commandContext) *cobra.Command {
	var maxKB int

	cmd := &cobra.Command{
		Use:   "compress <in> <out>",
		Short: "Re-encode an image as JPEG under the size budget",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if maxKB > 0 {
				cfg.Media.MaxSizeKB = maxKB
			}
			result, err := daemon.NewCompressor(cfg, nil).Compress(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (quality %d, %d KB, %d attempts)\n",
				args[1], result.Quality, result.Bytes/1024, result.Attempts)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxKB, "max-kb", 0, "Size budget in KB (defaults to media.max_size_kb)")
	return cmd
}
