package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateBridge(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/sam/config.toml"
		}
		return fmt.Errorf("paths.work_dir is required. Set SAM_WORKDIR or edit %s (create with 'sam config init')", defaultPath)
	}
	if strings.TrimSpace(c.Paths.PointerFile) == "" {
		return errors.New("paths.pointer_file must be set")
	}
	return nil
}

func (c *Config) validateMedia() error {
	m := c.Media
	if m.MaxSizeKB <= 0 {
		return errors.New("media.max_size_kb must be positive")
	}
	qualities := []struct {
		name  string
		value int
	}{
		{"media.compress_quality", m.CompressQuality},
		{"media.mosaic_quality", m.MosaicQuality},
		{"media.quality_floor", m.QualityFloor},
	}
	for _, q := range qualities {
		if q.value < 1 || q.value > 100 {
			return fmt.Errorf("%s must be between 1 and 100", q.name)
		}
	}
	if m.QualityStep < 1 {
		return errors.New("media.quality_step must be at least 1")
	}
	if m.QualityFloor > m.CompressQuality || m.QualityFloor > m.MosaicQuality {
		return errors.New("media.quality_floor must not exceed the starting qualities")
	}
	if m.MosaicColumns < 1 {
		return errors.New("media.mosaic_columns must be at least 1")
	}
	if m.CellWidth < 1 || m.CellHeight < 1 {
		return errors.New("media.cell_width and media.cell_height must be positive")
	}
	return nil
}

func (c *Config) validateBridge() error {
	if c.Bridge.URL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Bridge.URL)
	if err != nil {
		return fmt.Errorf("bridge.url: %w", err)
	}
	switch parsed.Scheme {
	case "ws", "wss":
		return nil
	default:
		return fmt.Errorf("bridge.url must use ws or wss, got %q", parsed.Scheme)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
