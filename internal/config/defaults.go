package config

const (
	defaultConfigPath       = "~/.config/bpmsync/config.toml"
	defaultWatchDir         = "~/.local/share/bpmsync/watch"
	defaultLogDir           = "~/.local/share/bpmsync/logs"
	defaultPlayerURL        = "http://localhost:8080"
	defaultRequestTimeoutMS = 3000
	defaultTempoField       = "master_bpm"
	defaultPollIntervalMS   = 2000
	defaultErrorIntervalMS  = 3000
	defaultDriftThreshold   = 0.01
	defaultEncoding         = "utf-8"
	defaultMatchMode        = "longest"
	defaultAPIBind          = "127.0.0.1:7488"
	defaultJournalFile      = "adjustments.db"
	defaultJournalRetention = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogMaxSizeMB     = 5
	defaultLogMaxBackups    = 3
	defaultLogMaxAgeDays    = 30

	// DefaultStatusFile is the status file written by the DJ software.
	DefaultStatusFile = "deck_status.txt"
	// DefaultStatusTemplate describes DefaultStatusFile.
	DefaultStatusTemplate = "%title% %artist% %album% %genre% %label% %key% %orig_artist% %remixer% " +
		"%composer% %comment% %mix_name% %lyricist% %date_created% %date_added% " +
		"%track_number% %bpm% %time% %deck1_bpm% %deck2_bpm% %deck3_bpm% %deck4_bpm% " +
		"%master_bpm% %rt_deck1_bpm% %rt_deck2_bpm% %rt_deck3_bpm% %rt_deck4_bpm% %rt_master_bpm%"
)

func defaultTemplates() map[string]string {
	return map[string]string{DefaultStatusFile: DefaultStatusTemplate}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir: defaultWatchDir,
			LogDir:   defaultLogDir,
		},
		Player: Player{
			URL:              defaultPlayerURL,
			RequestTimeoutMS: defaultRequestTimeoutMS,
		},
		Sync: Sync{
			TempoField:      defaultTempoField,
			PollIntervalMS:  defaultPollIntervalMS,
			ErrorIntervalMS: defaultErrorIntervalMS,
			DriftThreshold:  defaultDriftThreshold,
		},
		Watch: Watch{
			Encoding:  defaultEncoding,
			MatchMode: defaultMatchMode,
			Prime:     true,
		},
		Templates: defaultTemplates(),
		API: API{
			Bind: defaultAPIBind,
		},
		Journal: Journal{
			Enabled:       true,
			RetentionDays: defaultJournalRetention,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
