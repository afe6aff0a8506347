package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestCopyWithCIReporter(t *testing.T) {
	var out, log bytes.Buffer
	r := &CIReporter{w: &log}

	n, err := Copy(&out, strings.NewReader("hello backup"), 12, "backup_1.json", r)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if n != 12 || out.String() != "hello backup" {
		t.Fatalf("copied %d bytes: %q", n, out.String())
	}
	if !strings.Contains(log.String(), "backup_1.json: 12 B") {
		t.Errorf("missing start line in %q", log.String())
	}
	if !strings.Contains(log.String(), "done (12 B)") {
		t.Errorf("missing finish line in %q", log.String())
	}
}

func TestCIReporterUnknownSize(t *testing.T) {
	var log bytes.Buffer
	r := &CIReporter{w: &log}
	r.Start(-1, "download")
	r.Add(3)
	r.Finish()
	if !strings.Contains(log.String(), "download: starting") {
		t.Errorf("unexpected output %q", log.String())
	}
}

func TestCopyWithTerminalReporter(t *testing.T) {
	var out, term bytes.Buffer
	r := &TerminalReporter{w: &term}

	data := strings.Repeat("x", 4096)
	n, err := Copy(&out, strings.NewReader(data), int64(len(data)), "download", r)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if n != int64(len(data)) || out.Len() != len(data) {
		t.Fatalf("copied %d bytes", n)
	}
}

func TestNewReporterCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter(&bytes.Buffer{}).(*CIReporter); !ok {
		t.Error("expected CIReporter when CI is set")
	}
}
