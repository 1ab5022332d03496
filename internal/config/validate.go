package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks the loaded configuration. Load calls it automatically.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout must be >= 0 (got %s)", c.Database.BusyTimeout)
	}
	if err := c.Lookup.validate(); err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	if err := c.Import.validate(); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}
	return nil
}

func (l *LookupConfig) validate() error {
	if l.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be > 0 (got %d)", l.CacheSize)
	}
	if l.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be > 0 (got %d)", l.MaxDepth)
	}
	if l.MaxInputRunes <= 0 {
		return fmt.Errorf("max_input_runes must be > 0 (got %d)", l.MaxInputRunes)
	}
	seen := make(map[string]bool, len(l.Dictionaries))
	for _, id := range l.Dictionaries {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("dictionaries must not contain blank ids")
		}
		if seen[id] {
			return fmt.Errorf("dictionary %q listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

func (i *ImportConfig) validate() error {
	if i.StreamThreshold < 0 {
		return fmt.Errorf("stream_threshold must be >= 0 (got %d)", i.StreamThreshold)
	}
	if i.Workers <= 0 {
		return fmt.Errorf("workers must be > 0 (got %d)", i.Workers)
	}
	if i.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", i.BatchSize)
	}
	return nil
}
