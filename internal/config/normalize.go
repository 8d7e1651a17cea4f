package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAccess()
	c.normalizeMedia()
	c.normalizeBridge()
	c.normalizeNotifications()
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SAM_WORKDIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.WorkDir = strings.TrimSpace(value)
	}
	var err error
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PointerFile) == "" && c.Paths.WorkDir != "" {
		c.Paths.PointerFile = filepath.Join(c.Paths.WorkDir, defaultPointerFileName)
	}
	if c.Paths.PointerFile, err = expandPath(strings.TrimSpace(c.Paths.PointerFile)); err != nil {
		return fmt.Errorf("paths.pointer_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAccess() {
	if len(c.Access.AllowedIDs) == 0 {
		if value, ok := os.LookupEnv("SAM_ALLOWED_IDS"); ok {
			c.Access.AllowedIDs = strings.Split(value, ",")
		}
	}
	c.Access.AddressSuffix = strings.TrimSpace(c.Access.AddressSuffix)

	ids := make([]string, 0, len(c.Access.AllowedIDs))
	seen := make(map[string]struct{}, len(c.Access.AllowedIDs))
	for _, raw := range c.Access.AllowedIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if c.Access.AddressSuffix != "" && !strings.Contains(id, "@") {
			id += c.Access.AddressSuffix
		}
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	c.Access.AllowedIDs = ids
}

func (c *Config) normalizeMedia() {
	if c.Media.MaxSizeKB <= 0 {
		c.Media.MaxSizeKB = defaultMaxSizeKB
	}
	if c.Media.CompressQuality == 0 {
		c.Media.CompressQuality = defaultCompressQuality
	}
	if c.Media.MosaicQuality == 0 {
		c.Media.MosaicQuality = defaultMosaicQuality
	}
	if c.Media.QualityStep == 0 {
		c.Media.QualityStep = defaultQualityStep
	}
	if c.Media.QualityFloor == 0 {
		c.Media.QualityFloor = defaultQualityFloor
	}
	if c.Media.MosaicColumns == 0 {
		c.Media.MosaicColumns = defaultMosaicColumns
	}
	if c.Media.CellWidth == 0 {
		c.Media.CellWidth = defaultCellSize
	}
	if c.Media.CellHeight == 0 {
		c.Media.CellHeight = defaultCellSize
	}
}

func (c *Config) normalizeBridge() {
	c.Bridge.URL = strings.TrimSpace(c.Bridge.URL)
	if c.Bridge.URL == "" {
		if value, ok := os.LookupEnv("SAM_BRIDGE_URL"); ok {
			c.Bridge.URL = strings.TrimSpace(value)
		}
	}
	c.Bridge.Token = strings.TrimSpace(c.Bridge.Token)
	if value, ok := os.LookupEnv("SAM_BRIDGE_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Bridge.Token = strings.TrimSpace(value)
	}
	if c.Bridge.ReconnectSeconds <= 0 {
		c.Bridge.ReconnectSeconds = defaultReconnectSeconds
	}
	if c.Bridge.RequestTimeoutSeconds <= 0 {
		c.Bridge.RequestTimeoutSeconds = defaultBridgeRequestTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SAM_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeJournal() error {
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = filepath.Join(c.Paths.StateDir, defaultJournalFileName)
	}
	var err error
	if c.Journal.Path, err = expandPath(strings.TrimSpace(c.Journal.Path)); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
