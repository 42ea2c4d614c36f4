package httpsender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/velmie/tillsync"
)

// Contract selects how a response is judged successful.
type Contract int

const (
	// ContractOKFlag requires a 2xx status and a JSON object with "ok": true.
	ContractOKFlag Contract = iota
	// ContractStatus requires a 2xx status only.
	ContractStatus
)

const (
	defaultTokenField  = "token"
	defaultTimeout     = 30 * time.Second
	maxResponseBytes   = 64 << 10
	maxErrorBodyBytes  = 512
	defaultContentType = "application/json"
)

// Config defines sender behavior.
type Config struct {
	Client     *http.Client
	Token      string
	TokenField string
	UserAgent  string
	Contracts  map[tillsync.Target]Contract
}

func (c Config) withDefaults() Config {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: defaultTimeout}
	}
	if c.TokenField == "" {
		c.TokenField = defaultTokenField
	}
	if c.Contracts == nil {
		c.Contracts = make(map[tillsync.Target]Contract)
	}

	return c
}

// Option configures the sender.
type Option func(*Config)

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(c *Config) {
		c.Client = client
	}
}

// WithToken sets the shared secret merged into every body.
func WithToken(token string) Option {
	return func(c *Config) {
		c.Token = token
	}
}

// WithTokenField renames the body field carrying the token.
func WithTokenField(field string) Option {
	return func(c *Config) {
		c.TokenField = field
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithContract sets the success contract for target.
func WithContract(target tillsync.Target, contract Contract) Option {
	return func(c *Config) {
		if c.Contracts == nil {
			c.Contracts = make(map[tillsync.Target]Contract)
		}
		c.Contracts[target] = contract
	}
}

// Sender implements tillsync.Sender over HTTP.
type Sender struct {
	endpoints map[tillsync.Target]string
	cfg       Config
}

var _ tillsync.Sender = (*Sender)(nil)

// New returns a sender posting each target to its URL in endpoints.
func New(endpoints map[tillsync.Target]string, opts ...Option) *Sender {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	copied := make(map[tillsync.Target]string, len(endpoints))
	for target, url := range endpoints {
		copied[target] = url
	}

	return &Sender{endpoints: copied, cfg: cfg.withDefaults()}
}

// Send implements tillsync.Sender.
func (s *Sender) Send(ctx context.Context, item tillsync.Item) error {
	url := s.endpoints[item.Target]
	if url == "" {
		return fmt.Errorf("%w: %q", ErrEndpointMissing, item.Target)
	}

	body, err := tillsync.MergeField(item.Body, s.cfg.TokenField, s.cfg.Token)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("tillsync httpsender: build request: %w", err)
	}
	req.Header.Set("Content-Type", defaultContentType)
	req.Header.Set("Accept", defaultContentType)
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("tillsync httpsender: post %s: %w", item.Target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("tillsync httpsender: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: snippet(payload)}
	}
	if s.cfg.Contracts[item.Target] == ContractStatus {
		return nil
	}

	return acknowledged(payload)
}

func acknowledged(payload []byte) error {
	var ack struct {
		OK *bool `json:"ok"`
	}
	if err := json.Unmarshal(payload, &ack); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAcknowledged, err)
	}
	if ack.OK == nil || !*ack.OK {
		return fmt.Errorf("%w: %s", ErrNotAcknowledged, snippet(payload))
	}

	return nil
}

func snippet(payload []byte) string {
	s := strings.TrimSpace(string(payload))
	if len(s) > maxErrorBodyBytes {
		s = strings.ToValidUTF8(s[:maxErrorBodyBytes], "")
	}

	return s
}

// Classify dead-letters failures that will not succeed on retry: bodies that are not
// JSON objects, targets without an endpoint and 4xx responses other than 408 and 429.
func Classify(_ context.Context, _ tillsync.Item, err error) tillsync.FailureAction {
	if errors.Is(err, ErrBodyNotObject) || errors.Is(err, ErrEndpointMissing) {
		return tillsync.FailureDead
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && !statusErr.Temporary() {
		return tillsync.FailureDead
	}

	return tillsync.FailureRetry
}
