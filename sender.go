package tillsync

import (
	"context"
	"fmt"
)

// Sender delivers a single item to its remote endpoint.
type Sender interface {
	// Send returns nil only when the endpoint confirmed the delivery.
	Send(ctx context.Context, item Item) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, item Item) error

// Send implements Sender.
func (fn SenderFunc) Send(ctx context.Context, item Item) error {
	return fn(ctx, item)
}

// Router dispatches items to a sender chosen by target.
type Router map[Target]Sender

// Send implements Sender.
func (r Router) Send(ctx context.Context, item Item) error {
	sender, ok := r[item.Target]
	if !ok || sender == nil {
		return fmt.Errorf("%w: %q", ErrUnknownTarget, item.Target)
	}

	return sender.Send(ctx, item)
}
