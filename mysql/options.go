package mysql

import (
	"fmt"
	"strings"

	"github.com/velmie/tillsync"
)

const (
	defaultTable       = "tillsync_kv"
	maxIdentifierBytes = 64
)

// Config defines MySQL store behavior.
type Config struct {
	Table string
	Clock tillsync.Clock
}

func (c Config) withDefaults() Config {
	if c.Table == "" {
		c.Table = defaultTable
	}
	if c.Clock == nil {
		c.Clock = tillsync.SystemClock{}
	}

	return c
}

// Option configures the MySQL store.
type Option func(*Config)

// WithTable sets the key/value table name. A schema-qualified name ("db.table") is accepted.
func WithTable(name string) Option {
	return func(c *Config) {
		c.Table = name
	}
}

// WithClock sets the time source for updated_at.
func WithClock(clock tillsync.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

func sanitizeTableName(name string) (string, error) {
	if name == "" {
		return "", ErrTableNameRequired
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" || len(part) > maxIdentifierBytes {
			return "", fmt.Errorf("%w: %s", ErrInvalidTableName, name)
		}
		for _, r := range part {
			if r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				continue
			}

			return "", fmt.Errorf("%w: %s", ErrInvalidTableName, name)
		}
	}

	return name, nil
}
