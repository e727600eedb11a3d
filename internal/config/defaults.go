package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID        = "dashboard"
	DefaultRPCURL            = "https://api.mainnet-beta.solana.com"
	DefaultCommitment        = "confirmed"
	DefaultRPCTimeout        = 30 * time.Second
	DefaultDataFeedURL       = "https://soltoolstv.net"
	DefaultTVURL             = "https://soltoolstv.net/tv"
	DefaultDataFeedTimeout   = 10 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryBackoff      = time.Second
	DefaultDataFeedRate      = 5.0
	DefaultMarketAddress     = "9aruV2p8cRWxybx6wMsJwPFqeN7eQVPR74RrxdM3DNdu"
	DefaultFastRefresh       = 1 * time.Second
	DefaultSlowRefresh       = 5 * time.Second
	DefaultVerySlowRefresh   = 5000 * time.Second
	DefaultRefreshWorkers    = 8
	DefaultLoaderConcurrency = 16
	DefaultLoaderTimeout     = 30 * time.Second
	DefaultLoaderJitter      = 1 * time.Second
	DefaultLoaderRate        = 10.0
	DefaultBookDepth         = 1000
	DefaultStoreDriver       = "sqlite"
	DefaultStorePath         = "data/dashboard.db"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultServerPort        = 8080
	DefaultReadTimeout       = 15 * time.Second
	DefaultWriteTimeout      = 60 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultLogMaxSizeMB      = 10
	DefaultLogMaxBackups     = 3
	DefaultLogMaxAgeDays     = 28
)

func (c *DashboardConfig) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// RPC defaults
	if c.RPC.URL == "" {
		c.RPC.URL = DefaultRPCURL
	}
	if c.RPC.Commitment == "" {
		c.RPC.Commitment = DefaultCommitment
	}
	if c.RPC.Timeout == 0 {
		c.RPC.Timeout = DefaultRPCTimeout
	}

	// Data feed defaults
	if c.DataFeed.BaseURL == "" {
		c.DataFeed.BaseURL = DefaultDataFeedURL
	}
	if c.DataFeed.TVURL == "" {
		c.DataFeed.TVURL = DefaultTVURL
	}
	if c.DataFeed.Timeout == 0 {
		c.DataFeed.Timeout = DefaultDataFeedTimeout
	}
	if c.DataFeed.MaxRetries == 0 {
		c.DataFeed.MaxRetries = DefaultMaxRetries
	}
	if c.DataFeed.RetryBackoff == 0 {
		c.DataFeed.RetryBackoff = DefaultRetryBackoff
	}
	if c.DataFeed.RatePerSecond == 0 {
		c.DataFeed.RatePerSecond = DefaultDataFeedRate
	}
	if c.DataFeed.DefaultMarket == "" {
		c.DataFeed.DefaultMarket = DefaultMarketAddress
	}

	// Refresh defaults
	if c.Refresh.Fast == 0 {
		c.Refresh.Fast = DefaultFastRefresh
	}
	if c.Refresh.Slow == 0 {
		c.Refresh.Slow = DefaultSlowRefresh
	}
	if c.Refresh.VerySlow == 0 {
		c.Refresh.VerySlow = DefaultVerySlowRefresh
	}
	if c.Refresh.Concurrency == 0 {
		c.Refresh.Concurrency = DefaultRefreshWorkers
	}

	// Loader defaults
	if c.Loader.Concurrency == 0 {
		c.Loader.Concurrency = DefaultLoaderConcurrency
	}
	if c.Loader.Timeout == 0 {
		c.Loader.Timeout = DefaultLoaderTimeout
	}
	if c.Loader.MaxJitter == 0 {
		c.Loader.MaxJitter = DefaultLoaderJitter
	}
	if c.Loader.RatePerSecond == 0 {
		c.Loader.RatePerSecond = DefaultLoaderRate
	}
	if c.Loader.BookDepth == 0 {
		c.Loader.BookDepth = DefaultBookDepth
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	applyDBDefaults(&c.Database.Postgres)

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = DefaultPingInterval
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
