package source

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes one configured source. Only the fields relevant to its
// type are read; zero values take the type's defaults.
type Config struct {
	Type                string        `yaml:"type"`
	Name                string        `yaml:"name"`
	Enabled             *bool         `yaml:"enabled"`
	URL                 string        `yaml:"url"`
	URLs                []string      `yaml:"urls"`
	MaxPages            int           `yaml:"max_pages"`
	BackfillMaxPages    int           `yaml:"backfill_max_pages"`
	MaxMessages         int           `yaml:"max_messages"`
	BackfillMaxMessages int           `yaml:"backfill_max_messages"`
	PageDelay           time.Duration `yaml:"page_delay"`
	Year                int           `yaml:"year"`
	Channel             string        `yaml:"channel"`
	Feeds               []string      `yaml:"feeds"`
	Includes            []string      `yaml:"includes"`
}

type configFile struct {
	Sources []Config `yaml:"sources"`
}

func (c Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// defaultOrder is the run order of the built-in sources.
var defaultOrder = []string{
	HSEAprilName,
	EconorusName,
	HSEConfStudentsName,
	HSEEconName,
	HSEScienceName,
	CBRName,
	IneconName,
	NaKonferenciiName,
	TelegramName,
}

var knownTypes = map[string]bool{
	HSEAprilName:        true,
	EconorusName:        true,
	HSEConfStudentsName: true,
	HSEEconName:         true,
	HSEScienceName:      true,
	CBRName:             true,
	IneconName:          true,
	NaKonferenciiName:   true,
	TelegramName:        true,
	RSSName:             true,
}

// DefaultConfigs returns the built-in sources in run order.
func DefaultConfigs() []Config {
	configs := make([]Config, 0, len(defaultOrder))
	for _, t := range defaultOrder {
		c := Config{Type: t}
		applyDefaults(&c)
		configs = append(configs, c)
	}
	return configs
}

// LoadConfigs reads the sources file at path. An empty path yields the
// built-in sources.
func LoadConfigs(path string) ([]Config, error) {
	if path == "" {
		return DefaultConfigs(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range file.Sources {
		applyDefaults(&file.Sources[i])
	}

	if err := validateConfigs(file.Sources); err != nil {
		return nil, fmt.Errorf("invalid sources file %s: %w", path, err)
	}

	for _, c := range file.Sources {
		slog.Debug("Source configuration loaded", "name", c.Name, "type", c.Type, "enabled", c.IsEnabled())
	}

	return file.Sources, nil
}

func applyDefaults(c *Config) {
	if c.Name == "" {
		c.Name = c.Type
	}

	switch c.Type {
	case HSEAprilName:
		if c.URL == "" {
			c.URL = DefaultHSEAprilURL
		}
	case EconorusName:
		if c.URL == "" {
			c.URL = DefaultEconorusURL
		}
	case HSEConfStudentsName:
		if c.URL == "" {
			c.URL = DefaultHSEConfStudentsURL
		}
	case HSEEconName:
		if c.URL == "" {
			c.URL = DefaultHSEEconURL
		}
	case HSEScienceName:
		if c.URL == "" {
			c.URL = DefaultHSEScienceURL
		}
	case CBRName:
		if c.URL == "" {
			c.URL = DefaultCBRURL
		}
	case IneconName:
		if len(c.URLs) == 0 {
			c.URLs = append([]string(nil), DefaultIneconURLs...)
		}
	case NaKonferenciiName:
		if c.URL == "" {
			c.URL = DefaultNaKonferenciiURL
		}
		if c.MaxPages == 0 {
			c.MaxPages = DefaultMaxPages
		}
		if c.BackfillMaxPages == 0 {
			c.BackfillMaxPages = DefaultBackfillMaxPages
		}
	case TelegramName:
		if c.URL == "" {
			c.URL = DefaultTelegramBaseURL
		}
		if c.Channel == "" {
			c.Channel = DefaultTelegramChannel
		}
		if c.MaxMessages == 0 {
			c.MaxMessages = DefaultMaxMessages
		}
		if c.BackfillMaxMessages == 0 {
			c.BackfillMaxMessages = DefaultBackfillMessages
		}
		if c.PageDelay == 0 {
			c.PageDelay = DefaultPageDelay
		}
	}
}

func validateConfigs(configs []Config) error {
	names := make(map[string]bool, len(configs))
	types := make(map[string]bool, len(configs))

	for i, c := range configs {
		if c.Type == "" {
			return fmt.Errorf("source at index %d: type is required", i)
		}
		if !knownTypes[c.Type] {
			return fmt.Errorf("source at index %d: unknown type '%s'", i, c.Type)
		}
		if names[c.Name] {
			return fmt.Errorf("source at index %d: duplicate name '%s'", i, c.Name)
		}
		names[c.Name] = true

		// adapters report under their type, only rss takes its name
		if c.Type != RSSName {
			if types[c.Type] {
				return fmt.Errorf("source at index %d: duplicate type '%s'", i, c.Type)
			}
			types[c.Type] = true
		}

		nonNegativeFields := map[string]int{
			"max pages":             c.MaxPages,
			"backfill max pages":    c.BackfillMaxPages,
			"max messages":          c.MaxMessages,
			"backfill max messages": c.BackfillMaxMessages,
			"year":                  c.Year,
		}
		for fieldName, fieldValue := range nonNegativeFields {
			if fieldValue < 0 {
				return fmt.Errorf("source '%s': %s must be non-negative", c.Name, fieldName)
			}
		}
		if c.PageDelay < 0 {
			return fmt.Errorf("source '%s': page delay must be non-negative", c.Name)
		}

		if c.Type == RSSName && len(c.Feeds) == 0 {
			return fmt.Errorf("source '%s': at least one feed is required", c.Name)
		}
	}

	return nil
}

// Build creates the enabled adapters in configuration order. Backfill
// switches the crawling sources to their deeper limits.
func Build(configs []Config, fetcher *Fetcher, backfill bool) ([]Adapter, error) {
	adapters := make([]Adapter, 0, len(configs))

	for _, c := range configs {
		if !c.IsEnabled() {
			slog.Debug("Source disabled", "name", c.Name)
			continue
		}

		switch c.Type {
		case HSEAprilName:
			adapters = append(adapters, NewHSEApril(fetcher, c.URL, c.Year))
		case EconorusName:
			adapters = append(adapters, NewEconorus(fetcher, c.URL))
		case HSEConfStudentsName:
			adapters = append(adapters, NewHSEConfStudents(fetcher, c.URL))
		case HSEEconName:
			adapters = append(adapters, NewHSEEcon(fetcher, c.URL))
		case HSEScienceName:
			adapters = append(adapters, NewHSEScience(fetcher, c.URL))
		case CBRName:
			adapters = append(adapters, NewCBR(fetcher, c.URL))
		case IneconName:
			adapters = append(adapters, NewInecon(fetcher, c.URLs))
		case NaKonferenciiName:
			maxPages := c.MaxPages
			if backfill {
				maxPages = c.BackfillMaxPages
			}
			adapters = append(adapters, NewNaKonferencii(fetcher, c.URL, maxPages))
		case TelegramName:
			maxMessages := c.MaxMessages
			if backfill {
				maxMessages = c.BackfillMaxMessages
			}
			adapters = append(adapters, NewTelegram(fetcher, c.URL, c.Channel, maxMessages, c.PageDelay))
		case RSSName:
			adapters = append(adapters, NewRSS(fetcher, c.Name, c.Feeds, c.Includes))
		default:
			return nil, fmt.Errorf("unknown source type '%s'", c.Type)
		}
	}

	return adapters, nil
}
