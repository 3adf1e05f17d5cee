package portlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"serialtui/pkg/serial"
)

func testEvent(port, text string) serial.LineEvent {
	ts := time.Date(2026, 8, 30, 12, 34, 56, 789_000_000, time.UTC)
	return serial.LineEvent{Timestamp: ts, Port: port, Text: text}
}

func TestWriter_PerPortAndSuper(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Write(testEvent("GPS", "$GPGGA")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Write(testEvent("MODEM", "OK")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	gps, err := os.ReadFile(filepath.Join(dir, "gps.log"))
	if err != nil {
		t.Fatalf("read gps.log: %v", err)
	}
	if got := string(gps); got != "[12:34:56.789] $GPGGA\n" {
		t.Fatalf("gps.log = %q", got)
	}

	super, err := os.ReadFile(filepath.Join(dir, "super.log"))
	if err != nil {
		t.Fatalf("read super.log: %v", err)
	}
	want := "[12:34:56.789] [GPS] $GPGGA\n[12:34:56.789] [MODEM] OK\n"
	if got := string(super); got != want {
		t.Fatalf("super.log = %q, want %q", got, want)
	}
}

func TestWriter_PurgeThenContinue(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Write(testEvent("GPS", "before")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Purge(); err != nil {
		t.Fatalf("Purge: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".log") {
			t.Fatalf("log %s survived the purge", e.Name())
		}
	}

	if err := w.Write(testEvent("GPS", "after")); err != nil {
		t.Fatalf("Write after purge: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "gps.log"))
	if err != nil {
		t.Fatalf("read gps.log: %v", err)
	}
	if !strings.Contains(string(data), "after") || strings.Contains(string(data), "before") {
		t.Fatalf("gps.log after purge = %q", data)
	}
}

func TestWriter_SanitizesPortNames(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Write(testEvent("Dev/USB 0", "x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "dev_usb_0.log")); err != nil {
		t.Fatalf("sanitized log missing: %v", err)
	}
}

func TestWriter_WriteAfterCloseFails(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Close()
	if err := w.Write(testEvent("GPS", "late")); err == nil {
		t.Fatal("expected error writing after close")
	}
}
