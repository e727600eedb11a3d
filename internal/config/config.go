package config

import "time"

// DashboardConfig is the root configuration for a dashboard instance.
type DashboardConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	RPC      RPCConfig      `yaml:"rpc"`
	DataFeed DataFeedConfig `yaml:"datafeed"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Markets  MarketsConfig  `yaml:"markets"`
	Loader   LoaderConfig   `yaml:"loader"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InstanceConfig identifies this dashboard.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// RPCConfig holds the Solana JSON-RPC endpoint settings.
type RPCConfig struct {
	URL        string        `yaml:"url"`
	Commitment string        `yaml:"commitment"` // processed, confirmed, finalized
	Timeout    time.Duration `yaml:"timeout"`
}

// DataFeedConfig holds the external price/symbol API settings.
type DataFeedConfig struct {
	BaseURL       string        `yaml:"base_url"` // trade history API
	TVURL         string        `yaml:"tv_url"`   // symbol lookup (TradingView feed)
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	DefaultMarket string        `yaml:"default_market"`
}

// RefreshConfig holds polling intervals per data category.
type RefreshConfig struct {
	Fast        time.Duration `yaml:"fast"`
	Slow        time.Duration `yaml:"slow"`
	VerySlow    time.Duration `yaml:"very_slow"`
	Concurrency int           `yaml:"concurrency"`
}

// MarketsConfig controls the market registry.
type MarketsConfig struct {
	// Exclude lists market names hidden from the market list.
	// EXCLUDE_MARKETS (comma separated) is appended when set.
	Exclude          []string `yaml:"exclude"`
	IgnoreDeprecated bool     `yaml:"ignore_deprecated"`
}

// LoaderConfig controls on-chain market loading.
type LoaderConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxJitter     time.Duration `yaml:"max_jitter"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	BookDepth     int           `yaml:"book_depth"`
}

// StoreConfig selects the local persisted state backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres, memory
	Path   string `yaml:"path"`   // sqlite file path
}

// DatabaseConfig holds the Postgres connection used by the postgres store.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text, json
	File       string `yaml:"file"`   // optional rotated log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}
