package config

const (
	defaultDataDir        = "~/.local/share/cinelog"
	defaultLogDir         = "~/.local/share/cinelog/logs"
	defaultTMDBBaseURL    = "https://api.themoviedb.org/3"
	defaultTMDBLanguage   = "en-US"
	defaultTMDBTimeout    = 15
	defaultAcceptThresh   = 0.60
	defaultTieMargin      = 0.05
	defaultCandidateLimit = 5
	defaultYearTolerance  = 1
	defaultWorkers        = 4
	defaultNotifyTimeout  = 10
	defaultLogFormat      = ""
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		TMDB: TMDB{
			BaseURL:        defaultTMDBBaseURL,
			Language:       defaultTMDBLanguage,
			TimeoutSeconds: defaultTMDBTimeout,
		},
		Matching: Matching{
			AcceptThreshold: defaultAcceptThresh,
			TieMargin:       defaultTieMargin,
			CandidateLimit:  defaultCandidateLimit,
			YearTolerance:   defaultYearTolerance,
		},
		Run: Run{
			Workers: defaultWorkers,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Run:            true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// applyDefaults backfills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.LogDir == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
	if c.TMDB.TimeoutSeconds <= 0 {
		c.TMDB.TimeoutSeconds = defaultTMDBTimeout
	}
	if c.Matching.AcceptThreshold <= 0 {
		c.Matching.AcceptThreshold = defaultAcceptThresh
	}
	if c.Matching.TieMargin <= 0 {
		c.Matching.TieMargin = defaultTieMargin
	}
	if c.Matching.CandidateLimit <= 0 {
		c.Matching.CandidateLimit = defaultCandidateLimit
	}
	if c.Matching.YearTolerance < 0 {
		c.Matching.YearTolerance = defaultYearTolerance
	}
	if c.Run.Workers <= 0 {
		c.Run.Workers = defaultWorkers
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
