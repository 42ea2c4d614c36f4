package tillsync

import "context"

// FailureAction defines how a failed item should be handled.
type FailureAction int

const (
	// FailureRetry keeps the item queued for the next flush.
	FailureRetry FailureAction = iota
	// FailureDead marks the item as non-retryable and dead-letters it immediately.
	FailureDead
)

// FailureClassifier decides whether a failure is retryable.
type FailureClassifier func(ctx context.Context, item Item, err error) FailureAction

// FailureHandler is called for every failed delivery attempt, before classification.
type FailureHandler func(ctx context.Context, item Item, err error)

func defaultFailureClassifier(context.Context, Item, error) FailureAction {
	return FailureRetry
}
