package cfg

import "time"

type Cfg struct {
	// Storage and export
	DBPath     string
	CSVEnabled bool
	CSVPath    string

	// Pipeline
	SourcesFile  string
	IntervalDays int
	Backfill     bool
	UserAgent    string
	Timeout      time.Duration

	// HTTP API
	Port         string
	BaseUrl      string
	APIAccessKey string

	// Application metadata
	Timezone string
	Debug    bool
	LogFile  string
	Version  string
}

// Interval is the pause between two scheduled cycles.
func (c *Cfg) Interval() time.Duration {
	return time.Duration(c.IntervalDays) * 24 * time.Hour
}
