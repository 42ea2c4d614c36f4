package tillsync

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestStdLoggerFormatsPairs(t *testing.T) {
	var buf bytes.Buffer
	logger := StdLogger{Logger: log.New(&buf, "", 0)}

	logger.Info("flush done", "sent", 2, "remaining")
	logger.Debug("hidden", "k", "v")

	got := strings.TrimSpace(buf.String())
	if got != "INFO flush done sent=2 remaining=<missing>" {
		t.Fatalf("unexpected log line %q", got)
	}
}

func TestStdLoggerVerboseDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := StdLogger{Logger: log.New(&buf, "", 0), Verbose: true}

	logger.Debug("probe")

	if got := strings.TrimSpace(buf.String()); got != "DEBUG probe" {
		t.Fatalf("unexpected log line %q", got)
	}
}
