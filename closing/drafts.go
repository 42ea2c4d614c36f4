package closing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/velmie/tillsync"
)

// DraftKeyPrefix prefixes the storage key of a saved closing; the date follows it.
const DraftKeyPrefix = "fechamento:"

// ErrDraftNotFound is returned by Drafts.Load when nothing was saved for the date.
var ErrDraftNotFound = errors.New("tillsync closing: no saved closing for date")

// Drafts keeps each day's closing form in a tillsync.KV so it can be reloaded.
type Drafts struct {
	kv tillsync.KV
}

// NewDrafts returns drafts stored in kv.
func NewDrafts(kv tillsync.KV) *Drafts {
	return &Drafts{kv: kv}
}

// DraftKey returns the storage key of the closing for date.
func DraftKey(date string) string {
	return DraftKeyPrefix + date
}

// Save stores c under its date, replacing any earlier save for that day.
func (d *Drafts) Save(ctx context.Context, c Closing) error {
	if err := c.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("tillsync closing: encode draft: %w", err)
	}
	if err := d.kv.Put(ctx, DraftKey(c.Date), raw); err != nil {
		return fmt.Errorf("tillsync closing: save draft %s: %w", c.Date, err)
	}

	return nil
}

// Load returns the closing saved for date.
func (d *Drafts) Load(ctx context.Context, date string) (Closing, error) {
	if err := (Closing{Date: date}).Validate(); err != nil {
		return Closing{}, err
	}

	raw, err := d.kv.Get(ctx, DraftKey(date))
	if errors.Is(err, tillsync.ErrKeyNotFound) {
		return Closing{}, fmt.Errorf("%w: %s", ErrDraftNotFound, date)
	}
	if err != nil {
		return Closing{}, fmt.Errorf("tillsync closing: load draft %s: %w", date, err)
	}

	var c Closing
	if err := json.Unmarshal(raw, &c); err != nil {
		return Closing{}, fmt.Errorf("tillsync closing: decode draft %s: %w", date, err)
	}

	return c, nil
}
