package tillsync

import "errors"

var (
	// ErrInvalidTarget is returned when Entry.Target is not a known target.
	ErrInvalidTarget = errors.New("tillsync: invalid target")
	// ErrBodyRequired is returned when Entry.Body is empty.
	ErrBodyRequired = errors.New("tillsync: body is required")
	// ErrInvalidBody is returned when Entry.Body is not valid JSON.
	ErrInvalidBody = errors.New("tillsync: body must be valid JSON")
	// ErrBodyNotObject is returned when a body must be a JSON object to be sent.
	ErrBodyNotObject = errors.New("tillsync: body is not a JSON object")
	// ErrKeyNotFound is returned by KV implementations for absent keys.
	ErrKeyNotFound = errors.New("tillsync: key not found")
	// ErrCorruptSnapshot indicates the persisted list could not be decoded.
	ErrCorruptSnapshot = errors.New("tillsync: persisted outbox is corrupt")
	// ErrFlushInProgress is returned when Flush is called while another flush is running.
	ErrFlushInProgress = errors.New("tillsync: flush already in progress")
	// ErrUnknownTarget is returned by Router when no sender is registered for a target.
	ErrUnknownTarget = errors.New("tillsync: no sender for target")
	// ErrSenderPanic indicates a sender panicked while delivering an item.
	ErrSenderPanic = errors.New("tillsync: sender panic")
)
