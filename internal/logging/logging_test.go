package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewPrefix(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "engine").Printf("Loaded %d sheets", 2)

	if !strings.HasPrefix(buf.String(), "[engine] ") {
		t.Errorf("output %q lacks the component prefix", buf.String())
	}
	if !strings.Contains(buf.String(), "Loaded 2 sheets") {
		t.Errorf("output %q lacks the message", buf.String())
	}
}

func TestOpenStderr(t *testing.T) {
	w, err := Open(Options{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sheettrack.log")

	w, err := Open(Options{File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	New(w, "store").Println("opened database")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "[store] opened database") {
		t.Errorf("log file contents = %q", data)
	}
}
