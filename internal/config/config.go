package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir     string `toml:"work_dir"`
	PointerFile string `toml:"pointer_file"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
}

// Access contains the sender allow-list applied before dispatch.
type Access struct {
	AllowedIDs    []string `toml:"allowed_ids"`
	AddressSuffix string   `toml:"address_suffix"`
}

// Media contains the compression and mosaic knobs.
type Media struct {
	MaxSizeKB       int `toml:"max_size_kb"`
	CompressQuality int `toml:"compress_quality"`
	MosaicQuality   int `toml:"mosaic_quality"`
	QualityStep     int `toml:"quality_step"`
	QualityFloor    int `toml:"quality_floor"`
	MosaicColumns   int `toml:"mosaic_columns"`
	CellWidth       int `toml:"cell_width"`
	CellHeight      int `toml:"cell_height"`
}

// MaxBytes is the compression byte budget.
func (m Media) MaxBytes() int64 {
	return int64(m.MaxSizeKB) * 1024
}

// Bridge contains the chat bridge websocket connection settings.
type Bridge struct {
	URL                   string `toml:"url"`
	Token                 string `toml:"token"`
	ReconnectSeconds      int    `toml:"reconnect_seconds"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobFailures    bool   `toml:"job_failures"`
	Mosaic         bool   `toml:"mosaic"`
	Sessions       bool   `toml:"sessions"`
}

// Journal contains configuration for the SQLite job history.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for SAM.
//
// Configuration sections by subsystem:
//   - Paths: work directory, pointer file, state and log directories
//   - Access: sender allow-list
//   - Media: compression ladder and mosaic geometry
//   - Bridge: chat bridge websocket endpoint
//   - Notifications: ntfy push notification settings
//   - Journal: job history database
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Access        Access        `toml:"access"`
	Media         Media         `toml:"media"`
	Bridge        Bridge        `toml:"bridge"`
	Notifications Notifications `toml:"notifications"`
	Journal       Journal       `toml:"journal"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sam/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sam.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.Paths.StateDir, c.Paths.LogDir, filepath.Dir(c.Paths.PointerFile)}
	if c.Journal.Enabled && strings.TrimSpace(c.Journal.Path) != "" {
		dirs = append(dirs, filepath.Dir(c.Journal.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the single-instance lock file guarding the work directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, ".sam.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
