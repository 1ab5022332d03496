package config

import "time"

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Import   ImportConfig   `yaml:"import"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path        string        `yaml:"path"         env:"TAPDICT_DB_PATH"         env-default:"tapdict.db"`
	BusyTimeout time.Duration `yaml:"busy_timeout" env:"TAPDICT_DB_BUSY_TIMEOUT" env-default:"5s"`
}

// LookupConfig tunes the lookup coordinator and its cache.
type LookupConfig struct {
	CacheSize     int `yaml:"cache_size"      env:"TAPDICT_CACHE_SIZE"      env-default:"100"`
	MaxDepth      int `yaml:"max_depth"       env:"TAPDICT_MAX_DEPTH"       env-default:"6"`
	MaxInputRunes int `yaml:"max_input_runes" env:"TAPDICT_MAX_INPUT_RUNES" env-default:"32"`
	// Dictionaries is the enabled set in priority order.
	Dictionaries []string `yaml:"dictionaries" env:"TAPDICT_DICTIONARIES" env-separator:","`
	// RulesPath optionally replaces the built-in Japanese rule table.
	RulesPath string `yaml:"rules_path" env:"TAPDICT_RULES_PATH"`
	// Morphology enables kagome lemma hints.
	Morphology bool `yaml:"morphology" env:"TAPDICT_MORPHOLOGY" env-default:"false"`
}

// ImportConfig tunes the import pipeline.
type ImportConfig struct {
	StreamThreshold int64 `yaml:"stream_threshold" env:"TAPDICT_STREAM_THRESHOLD" env-default:"10485760"`
	Workers         int   `yaml:"workers"          env:"TAPDICT_IMPORT_WORKERS"   env-default:"4"`
	BatchSize       int   `yaml:"batch_size"       env:"TAPDICT_IMPORT_BATCH"     env-default:"500"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"TAPDICT_LOG_LEVEL"  env-default:"info"`
	Pretty bool   `yaml:"pretty" env:"TAPDICT_LOG_PRETTY" env-default:"false"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"TAPDICT_SERVER_HOST"             env-default:"127.0.0.1"`
	Port            int           `yaml:"port"             env:"TAPDICT_SERVER_PORT"             env-default:"8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"TAPDICT_SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}
