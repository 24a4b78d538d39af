package config

const (
	defaultDataDir              = "~/.local/share/beacon"
	defaultLogDir               = "~/.local/share/beacon/logs"
	defaultAPIBind              = "127.0.0.1:7690"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultSameDeviceThreshold  = 0.70
	defaultCrossDeviceThreshold = 0.55
	defaultCandidateLimit       = 500
	defaultModuleTimeoutMillis  = 2000
	defaultDuplicateWindowDays  = 7
	defaultExpiryDays           = 90
	defaultTokenIdleDays        = 90
	defaultSweepIntervalSecs    = 3600
	defaultRequestsPerMinute    = 120
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Matching: Matching{
			SameDeviceThreshold:  defaultSameDeviceThreshold,
			CrossDeviceThreshold: defaultCrossDeviceThreshold,
			CandidateLimit:       defaultCandidateLimit,
		},
		Collection: Collection{
			ModuleTimeoutMillis: defaultModuleTimeoutMillis,
		},
		Retention: Retention{
			DuplicateWindowDays: defaultDuplicateWindowDays,
			ExpiryDays:          defaultExpiryDays,
			TokenIdleDays:       defaultTokenIdleDays,
			SweepIntervalSecs:   defaultSweepIntervalSecs,
		},
		RateLimit: RateLimit{
			RequestsPerMinute: defaultRequestsPerMinute,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
