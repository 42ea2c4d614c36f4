package tillsync

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Target selects the remote endpoint an item is delivered to.
type Target string

const (
	// TargetMain is the primary ledger sheet.
	TargetMain Target = "main"
	// TargetControl is the control sheet.
	TargetControl Target = "control"
	// TargetCommissions is the commissions sheet.
	TargetCommissions Target = "commissions"
)

// Targets lists every known target.
func Targets() []Target {
	return []Target{TargetMain, TargetControl, TargetCommissions}
}

// Valid reports whether t is one of the known targets.
func (t Target) Valid() bool {
	switch t {
	case TargetMain, TargetControl, TargetCommissions:
		return true
	default:
		return false
	}
}

// Entry describes a new record to be queued.
type Entry struct {
	// Target picks the destination endpoint.
	Target Target
	// Body is the payload already shaped for the destination. It must be valid JSON.
	Body json.RawMessage
}

// Validate checks the target and body.
func (e Entry) Validate() error {
	if !e.Target.Valid() {
		return ErrInvalidTarget
	}
	if len(e.Body) == 0 {
		return ErrBodyRequired
	}
	if !json.Valid(e.Body) {
		return ErrInvalidBody
	}

	return nil
}

// Item is a queued record as persisted in the outbox.
type Item struct {
	// ID is a diagnostic handle; it is never used for ordering or deduplication.
	ID        uuid.UUID       `json:"id"`
	Target    Target          `json:"target"`
	Body      json.RawMessage `json:"body"`
	CreatedAt time.Time       `json:"createdAt"`
	Attempts  int             `json:"attempts,omitempty"`
	LastError string          `json:"lastError,omitempty"`
}
