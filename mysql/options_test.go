package mysql

import "testing"

func TestSanitizeTableName(t *testing.T) {
	valid := []string{"tillsync_kv", "kiosk.tillsync_kv", "KV_1"}
	for _, name := range valid {
		if _, err := sanitizeTableName(name); err != nil {
			t.Fatalf("expected valid name %q: %v", name, err)
		}
	}

	invalid := []string{"", "kv;drop", "kv-1", "kiosk..kv", "kiosk.kv;"}
	for _, name := range invalid {
		if _, err := sanitizeTableName(name); err == nil {
			t.Fatalf("expected invalid name %q", name)
		}
	}
}
