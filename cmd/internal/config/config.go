// Package config loads tillsync binary settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/velmie/tillsync"
)

// Store backends.
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreMySQL    = "mysql"
	StorePostgres = "postgres"
)

var (
	// ErrInvalidStore is returned for an unknown TILLSYNC_STORE value.
	ErrInvalidStore = errors.New("config: unknown store")
	// ErrDSNRequired is returned when a SQL store has no DSN.
	ErrDSNRequired = errors.New("config: dsn is required for the selected store")
	// ErrInvalidEndpoint is returned for endpoints that are not http(s) or amqp(s) URLs.
	ErrInvalidEndpoint = errors.New("config: invalid endpoint")
	// ErrInvalidMaxAttempts is returned for a negative attempt cap.
	ErrInvalidMaxAttempts = errors.New("config: max attempts must not be negative")
)

// Config holds every setting of the binary.
type Config struct {
	AppName     string `env:"APP_NAME" envDefault:"tillsync"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Release     string `env:"RELEASE"`
	SentryDSN   string `env:"SENTRY_DSN"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Store       string `env:"TILLSYNC_STORE" envDefault:"file"`
	DataDir     string `env:"TILLSYNC_DATA_DIR" envDefault:"./data"`
	RedisAddr   string `env:"TILLSYNC_REDIS_ADDR" envDefault:"localhost:6379"`
	MySQLDSN    string `env:"TILLSYNC_MYSQL_DSN"`
	PostgresDSN string `env:"TILLSYNC_POSTGRES_DSN"`
	QueueKey    string `env:"TILLSYNC_QUEUE_KEY" envDefault:"syncQueue:v2"`

	EndpointMain        string `env:"TILLSYNC_ENDPOINT_MAIN"`
	EndpointControl     string `env:"TILLSYNC_ENDPOINT_CONTROL"`
	EndpointCommissions string `env:"TILLSYNC_ENDPOINT_COMMISSIONS"`
	AMQPExchange        string `env:"TILLSYNC_AMQP_EXCHANGE"`
	Token               string `env:"TILLSYNC_TOKEN"`

	MaxAttempts     int           `env:"TILLSYNC_MAX_ATTEMPTS" envDefault:"0"`
	DeadOnPermanent bool          `env:"TILLSYNC_DEAD_ON_PERMANENT" envDefault:"false"`
	SendTimeout     time.Duration `env:"TILLSYNC_SEND_TIMEOUT" envDefault:"30s"`
	SyncInterval    time.Duration `env:"TILLSYNC_SYNC_INTERVAL" envDefault:"1m"`
	ProbeAddr       string        `env:"TILLSYNC_PROBE_ADDR"`
	ProbeURL        string        `env:"TILLSYNC_PROBE_URL"`
	ProbeInterval   time.Duration `env:"TILLSYNC_PROBE_INTERVAL" envDefault:"10s"`
}

// LoadDotEnv loads path into the process environment if the file exists.
// Variables already set take precedence.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load %s: %w", path, err)
	}

	return nil
}

// Parse reads the configuration from environ and validates it.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreRedis:
	case StoreMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("%w: TILLSYNC_MYSQL_DSN", ErrDSNRequired)
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: TILLSYNC_POSTGRES_DSN", ErrDSNRequired)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStore, c.Store)
	}
	if c.MaxAttempts < 0 {
		return ErrInvalidMaxAttempts
	}
	for target, raw := range c.Endpoints() {
		if _, err := parseEndpoint(raw); err != nil {
			return fmt.Errorf("%w for %s: %v", ErrInvalidEndpoint, target, err)
		}
	}

	return nil
}

// Endpoints returns the configured endpoint per target.
func (c Config) Endpoints() map[tillsync.Target]string {
	endpoints := make(map[tillsync.Target]string, 3)
	for target, raw := range map[tillsync.Target]string{
		tillsync.TargetMain:        c.EndpointMain,
		tillsync.TargetControl:     c.EndpointControl,
		tillsync.TargetCommissions: c.EndpointCommissions,
	} {
		if raw != "" {
			endpoints[target] = raw
		}
	}

	return endpoints
}

// IsAMQP reports whether endpoint is a broker URL.
func IsAMQP(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}

	return u.Scheme == "amqp" || u.Scheme == "amqps"
}

// ProbeTarget returns the host:port dialled to detect a network link: TILLSYNC_PROBE_ADDR
// when set, otherwise the main endpoint's host. Empty means no probing.
func (c Config) ProbeTarget() string {
	if c.ProbeAddr != "" {
		return c.ProbeAddr
	}
	for _, raw := range []string{c.EndpointMain, c.EndpointControl, c.EndpointCommissions} {
		if raw == "" {
			continue
		}
		u, err := parseEndpoint(raw)
		if err != nil {
			continue
		}
		if port := u.Port(); port != "" {
			return u.Host
		}

		return net.JoinHostPort(u.Hostname(), defaultPorts[u.Scheme])
	}

	return ""
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"amqp":  "5672",
	"amqps": "5671",
}

func parseEndpoint(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if _, ok := defaultPorts[u.Scheme]; !ok {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, errors.New("missing host")
	}

	return u, nil
}
