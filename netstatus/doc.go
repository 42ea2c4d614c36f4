// Package netstatus reports network reachability to a tillsync Engine.
//
// Monitor probes a link (a TCP dial to a local gateway or the sync host) and,
// optionally, an internet endpoint, and notifies subscribers whenever the
// resulting tillsync.Status changes. Switch is a manually driven source for
// hosts that receive connectivity events from elsewhere.
package netstatus
