// Package filestore persists tillsync outboxes as JSON files in a local directory.
//
// Each key maps to one file. Writes go to a temporary file that is fsynced and
// renamed over the target, so a crash leaves either the old or the new value.
package filestore
