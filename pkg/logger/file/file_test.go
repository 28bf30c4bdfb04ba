package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extract.log")
	if err := os.WriteFile(path, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := NewFileLogger(FileLoggerParams{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Info("Processed dataset", "dataset", "d1", "used", 2)
	l.Debug("hidden")
	l.Error("Extraction failed", "file", "a b.nt")
	if err := l.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	if strings.Contains(out, "previous run") {
		t.Fatalf("expected file to be truncated, got %q", out)
	}
	if !strings.Contains(out, "dataset=d1") || !strings.Contains(out, "used=2") {
		t.Fatalf("expected logfmt key/values, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, `file="a b.nt"`) {
		t.Fatalf("expected quoted value, got %q", out)
	}
}
