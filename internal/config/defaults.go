package config

const (
	defaultWorkDir              = "~/sam/workdir"
	defaultPointerFileName      = "lastsession.json"
	defaultStateDir             = "~/.local/share/sam"
	defaultLogDir               = "~/.local/share/sam/logs"
	defaultJournalFileName      = "journal.db"
	defaultAddressSuffix        = "@c.us"
	defaultMaxSizeKB            = 600
	defaultCompressQuality      = 85
	defaultMosaicQuality        = 70
	defaultQualityStep          = 5
	defaultQualityFloor         = 10
	defaultMosaicColumns        = 3
	defaultCellSize             = 400
	defaultReconnectSeconds     = 5
	defaultBridgeRequestTimeout = 60
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Access: Access{
			AddressSuffix: defaultAddressSuffix,
		},
		Media: Media{
			MaxSizeKB:       defaultMaxSizeKB,
			CompressQuality: defaultCompressQuality,
			MosaicQuality:   defaultMosaicQuality,
			QualityStep:     defaultQualityStep,
			QualityFloor:    defaultQualityFloor,
			MosaicColumns:   defaultMosaicColumns,
			CellWidth:       defaultCellSize,
			CellHeight:      defaultCellSize,
		},
		Bridge: Bridge{
			ReconnectSeconds:      defaultReconnectSeconds,
			RequestTimeoutSeconds: defaultBridgeRequestTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobFailures:    true,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
