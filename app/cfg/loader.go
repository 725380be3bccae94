package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage and export
	DBPath     string `long:"db" env:"DB_PATH" default:"data/app.db" description:"SQLite database file"`
	CSVEnabled bool   `long:"csv" env:"CSV_ENABLED" description:"Write newly inserted records to a CSV file after every run"`
	CSVPath    string `long:"csv-path" env:"CSV_PATH" default:"data/new_items.csv" description:"CSV export file"`

	// Pipeline
	SourcesFile  string        `long:"sources" env:"SOURCES_FILE" description:"YAML file with the source list (built-in list when empty)"`
	IntervalDays int           `long:"interval-days" env:"INTERVAL_DAYS" default:"3" description:"Days between scheduled runs"`
	Backfill     bool          `long:"backfill" env:"BACKFILL" description:"Run once with deep crawl limits and exit"`
	UserAgent    string        `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; CFP-Comb/1.0)" description:"User agent string for HTTP requests"`
	Timeout      time.Duration `long:"timeout" env:"HTTP_TIMEOUT" default:"30s" description:"Per-request HTTP timeout"`

	// HTTP API
	Port         string `long:"port" env:"PORT" description:"HTTP server port (API disabled when empty)"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://cfp.example.com)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Moscow)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogFile  string `long:"log-file" env:"LOG_FILE" description:"Also append logs to this file"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses args instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.IntervalDays < 1 {
		return nil, fmt.Errorf("interval-days must be at least 1, got %d", raw.IntervalDays)
	}
	if raw.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", raw.Timeout)
	}

	cfg := &Cfg{
		DBPath:       raw.DBPath,
		CSVEnabled:   raw.CSVEnabled,
		CSVPath:      raw.CSVPath,
		SourcesFile:  raw.SourcesFile,
		IntervalDays: raw.IntervalDays,
		Backfill:     raw.Backfill,
		UserAgent:    raw.UserAgent,
		Timeout:      raw.Timeout,
		Port:         raw.Port,
		BaseUrl:      raw.BaseUrl,
		APIAccessKey: raw.APIAccessKey,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		LogFile:      raw.LogFile,
		Version:      GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
