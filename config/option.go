package config

import "time"

// Option configures a Config.
type Option func(*Config) error

// WithDialect sets the dialect name.
func WithDialect(name string) Option {
	return func(c *Config) error {
		c.Dialect = name
		return nil
	}
}

// WithDriver sets the database/sql driver name.
func WithDriver(name string) Option {
	return func(c *Config) error {
		c.Driver = name
		return nil
	}
}

// WithDSN sets the data source name.
func WithDSN(dsn string) Option {
	return func(c *Config) error {
		c.DSN = dsn
		return nil
	}
}

// WithPool sets the connection pool limits.
func WithPool(maxOpen, maxIdle int, maxLifetime time.Duration) Option {
	return func(c *Config) error {
		if maxOpen < 0 || maxIdle < 0 {
			return NewConfigError("pool", [2]int{maxOpen, maxIdle}, "connection limits must not be negative")
		}
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
		c.ConnMaxLifetime = maxLifetime
		return nil
	}
}

// WithSlowThreshold sets the duration above which statements are slow.
func WithSlowThreshold(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return NewConfigError("slow_threshold", d, "must not be negative")
		}
		c.SlowThreshold = d
		return nil
	}
}

// WithDebug toggles statement logging.
func WithDebug(debug bool) Option {
	return func(c *Config) error {
		c.Debug = debug
		return nil
	}
}
