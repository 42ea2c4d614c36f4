package tillsync

import "context"

// Status is a snapshot of network reachability.
type Status struct {
	// Connected reports an active network link.
	Connected bool
	// InternetReachable reports whether the internet answered; meaningful only when ReachabilityKnown.
	InternetReachable bool
	// ReachabilityKnown is false when no internet check has been made.
	ReachabilityKnown bool
}

// Online reports whether a delivery attempt makes sense.
func (s Status) Online() bool {
	if !s.Connected {
		return false
	}

	return !s.ReachabilityKnown || s.InternetReachable
}

// Connectivity reports the current reachability on demand.
type Connectivity interface {
	// Status queries the current reachability.
	Status(ctx context.Context) (Status, error)
}

// Notifier delivers reachability changes to subscribers.
type Notifier interface {
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func(Status)) (unsubscribe func())
}

// AlwaysOnline is a Connectivity that always reports a reachable network.
type AlwaysOnline struct{}

// Status implements Connectivity.
func (AlwaysOnline) Status(context.Context) (Status, error) {
	return Status{Connected: true, InternetReachable: true, ReachabilityKnown: true}, nil
}
