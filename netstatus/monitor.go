package netstatus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/velmie/tillsync"
)

const defaultInterval = 10 * time.Second

// ErrProberRequired is returned when Monitor has no link prober.
var ErrProberRequired = errors.New("tillsync netstatus: link prober is required")

// MonitorConfig defines Monitor behavior.
type MonitorConfig struct {
	Internet Prober
	Interval time.Duration
	Logger   tillsync.Logger
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.Logger == nil {
		c.Logger = tillsync.NopLogger{}
	}

	return c
}

// MonitorOption configures a Monitor.
type MonitorOption func(*MonitorConfig)

// WithInternetProber adds an internet reachability check run after a successful link probe.
func WithInternetProber(p Prober) MonitorOption {
	return func(c *MonitorConfig) {
		c.Internet = p
	}
}

// WithInterval sets how often Run probes.
func WithInterval(d time.Duration) MonitorOption {
	return func(c *MonitorConfig) {
		c.Interval = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger tillsync.Logger) MonitorOption {
	return func(c *MonitorConfig) {
		c.Logger = logger
	}
}

// Monitor implements tillsync.Connectivity and tillsync.Notifier by active probing.
type Monitor struct {
	link Prober
	cfg  MonitorConfig
	subs subscribers

	// checkMu orders probes and their notifications.
	checkMu sync.Mutex

	mu     sync.Mutex
	last   tillsync.Status
	probed bool
}

var (
	_ tillsync.Connectivity = (*Monitor)(nil)
	_ tillsync.Notifier     = (*Monitor)(nil)
)

// NewMonitor returns a monitor probing link.
func NewMonitor(link Prober, opts ...MonitorOption) (*Monitor, error) {
	if link == nil {
		return nil, ErrProberRequired
	}

	var cfg MonitorConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Monitor{link: link, cfg: cfg.withDefaults()}, nil
}

// Status implements tillsync.Connectivity. Every call probes.
func (m *Monitor) Status(ctx context.Context) (tillsync.Status, error) {
	return m.Check(ctx), nil
}

// Last returns the most recent probe result and whether a probe has run.
func (m *Monitor) Last() (tillsync.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.last, m.probed
}

// Subscribe implements tillsync.Notifier. If a probe has already run, fn receives its result
// before Subscribe returns.
func (m *Monitor) Subscribe(fn func(tillsync.Status)) func() {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	unsubscribe := m.subs.add(fn)
	if status, ok := m.Last(); ok {
		fn(status)
	}

	return unsubscribe
}

// Check probes now, records the result and notifies subscribers if it changed.
// Concurrent calls run one at a time, so subscribers see changes in probe order.
// Subscribers must not call Check or Status.
func (m *Monitor) Check(ctx context.Context) tillsync.Status {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	status := m.probe(ctx)

	m.mu.Lock()
	changed := !m.probed || m.last != status
	m.last = status
	m.probed = true
	m.mu.Unlock()

	if changed {
		m.cfg.Logger.Info("tillsync connectivity changed",
			"connected", status.Connected,
			"internetReachable", status.InternetReachable,
			"reachabilityKnown", status.ReachabilityKnown)
		m.subs.notify(status)
	}

	return status
}

// Run probes every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.Check(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) tillsync.Status {
	if err := m.link.Probe(ctx); err != nil {
		m.cfg.Logger.Debug("tillsync link probe failed", "err", err)
		return tillsync.Status{}
	}
	if m.cfg.Internet == nil {
		return tillsync.Status{Connected: true}
	}
	if err := m.cfg.Internet.Probe(ctx); err != nil {
		m.cfg.Logger.Debug("tillsync internet probe failed", "err", err)
		return tillsync.Status{Connected: true, ReachabilityKnown: true}
	}

	return tillsync.Status{Connected: true, InternetReachable: true, ReachabilityKnown: true}
}
