package httpsender

import (
	"errors"
	"fmt"

	"github.com/velmie/tillsync"
)

var (
	// ErrEndpointMissing is returned when no URL is configured for the item's target.
	ErrEndpointMissing = errors.New("tillsync httpsender: no endpoint for target")
	// ErrNotAcknowledged is returned when a 2xx response does not carry ok=true.
	ErrNotAcknowledged = errors.New("tillsync httpsender: delivery not acknowledged")
	// ErrBodyNotObject is returned when the item body is not a JSON object.
	ErrBodyNotObject = tillsync.ErrBodyNotObject
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tillsync httpsender: unexpected status %d", e.StatusCode)
	}

	return fmt.Sprintf("tillsync httpsender: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 408 || e.StatusCode == 429
}
