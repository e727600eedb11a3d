package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *DashboardConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := validateURL("rpc.url", c.RPC.URL); err != nil {
		return err
	}
	switch c.RPC.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("rpc.commitment must be one of processed, confirmed, finalized, got %q", c.RPC.Commitment)
	}

	if err := validateURL("datafeed.base_url", c.DataFeed.BaseURL); err != nil {
		return err
	}
	if err := validateURL("datafeed.tv_url", c.DataFeed.TVURL); err != nil {
		return err
	}
	if c.DataFeed.MaxRetries < 0 {
		return errors.New("datafeed.max_retries must be >= 0")
	}
	if c.DataFeed.RatePerSecond < 0 {
		return errors.New("datafeed.rate_per_second must be >= 0")
	}

	if c.Refresh.Fast <= 0 || c.Refresh.Slow <= 0 || c.Refresh.VerySlow <= 0 {
		return errors.New("refresh intervals must be positive")
	}
	if c.Refresh.Fast > c.Refresh.Slow || c.Refresh.Slow > c.Refresh.VerySlow {
		return errors.New("refresh intervals must satisfy fast <= slow <= very_slow")
	}
	if c.Refresh.Concurrency < 1 {
		return errors.New("refresh.concurrency must be >= 1")
	}

	if c.Loader.Concurrency < 1 {
		return errors.New("loader.concurrency must be >= 1")
	}
	if c.Loader.BookDepth < 1 {
		return errors.New("loader.book_depth must be >= 1")
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return errors.New("store.path is required for sqlite")
		}
	case "postgres":
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver must be one of sqlite, postgres, memory, got %q", c.Store.Driver)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, raw)
	}
	return nil
}
