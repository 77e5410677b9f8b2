package repository

import "time"

type sqliteConfig struct {
	journalMode string
	busyTimeout time.Duration
}

// SQLiteOption applies a configuration option to the SQLite log.
type SQLiteOption func(*sqliteConfig)

// WithJournalMode overrides the SQLite journal mode (default WAL).
func WithJournalMode(mode string) SQLiteOption {
	return func(c *sqliteConfig) {
		if mode != "" {
			c.journalMode = mode
		}
	}
}

// WithBusyTimeout sets how long concurrent writers wait on the lock.
func WithBusyTimeout(d time.Duration) SQLiteOption {
	return func(c *sqliteConfig) {
		if d > 0 {
			c.busyTimeout = d
		}
	}
}
