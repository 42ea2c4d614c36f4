package netstatus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const defaultProbeTimeout = 3 * time.Second

// ErrAddrRequired is returned when a prober has no target.
var ErrAddrRequired = errors.New("tillsync netstatus: probe address is required")

// Prober checks a single reachability condition.
type Prober interface {
	// Probe returns nil when the target answered.
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

// Probe implements Prober.
func (fn ProberFunc) Probe(ctx context.Context) error {
	return fn(ctx)
}

// DialProber succeeds when a TCP connection to Addr can be opened.
type DialProber struct {
	Addr    string
	Timeout time.Duration
}

// Probe implements Prober.
func (p DialProber) Probe(ctx context.Context) error {
	if p.Addr == "" {
		return ErrAddrRequired
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return fmt.Errorf("tillsync netstatus: dial %s: %w", p.Addr, err)
	}

	return conn.Close()
}

// HTTPProber succeeds when a HEAD request to URL gets any response.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

// Probe implements Prober.
func (p HTTPProber) Probe(ctx context.Context) error {
	if p.URL == "" {
		return ErrAddrRequired
	}

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: defaultProbeTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return fmt.Errorf("tillsync netstatus: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("tillsync netstatus: head %s: %w", p.URL, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.Body.Close()
}
