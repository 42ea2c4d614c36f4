package netstatus

import (
	"context"
	"sync"

	"github.com/velmie/tillsync"
)

// Switch is a manually driven connectivity source.
type Switch struct {
	subs subscribers

	mu     sync.Mutex
	status tillsync.Status
}

var (
	_ tillsync.Connectivity = (*Switch)(nil)
	_ tillsync.Notifier     = (*Switch)(nil)
)

// NewSwitch returns a switch reporting initial.
func NewSwitch(initial tillsync.Status) *Switch {
	return &Switch{status: initial}
}

// Status implements tillsync.Connectivity.
func (s *Switch) Status(context.Context) (tillsync.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status, nil
}

// Subscribe implements tillsync.Notifier. fn receives the current status before Subscribe returns.
func (s *Switch) Subscribe(fn func(tillsync.Status)) func() {
	unsubscribe := s.subs.add(fn)
	current, _ := s.Status(context.Background())
	fn(current)

	return unsubscribe
}

// Set records status and notifies subscribers if it changed.
func (s *Switch) Set(status tillsync.Status) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	s.mu.Unlock()

	if changed {
		s.subs.notify(status)
	}
}

// SetOnline is a shorthand for a link-only status.
func (s *Switch) SetOnline(online bool) {
	s.Set(tillsync.Status{Connected: online})
}
