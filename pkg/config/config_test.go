package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
ports:
  - name: GPS
    path: /dev/ttyUSB0
`)
	cfg, used, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if used != path {
		t.Fatalf("used %q, want %q", used, path)
	}
	p := cfg.Ports[0]
	if p.BaudRate != 115200 || p.DataBits != 8 || p.StopBits != 1 {
		t.Fatalf("defaults not applied: %+v", p)
	}
	if p.LineEnding != "lf" {
		t.Fatalf("line ending = %q, want lf", p.LineEnding)
	}
	if !cfg.ShouldAutoConnect() {
		t.Fatal("auto connect should default to true")
	}
}

func TestLoad_RejectsDuplicateNames(t *testing.T) {
	path := writeConfig(t, `
ports:
  - name: GPS
    path: /dev/ttyUSB0
  - name: GPS
    path: /dev/ttyUSB1
`)
	if _, _, err := Load(path); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestLoad_RejectsBadPort(t *testing.T) {
	path := writeConfig(t, `
ports:
  - name: GPS
    path: /dev/ttyUSB0
    parity: sometimes
`)
	if _, _, err := Load(path); err == nil {
		t.Fatal("expected parity error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	_, _, err := Load(missing)
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("err = %v, want ErrConfigNotFound", err)
	}
}

func TestCandidates_EnvOverride(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/override.yaml")
	got := Candidates("")
	if len(got) != 1 || got[0] != "/tmp/override.yaml" {
		t.Fatalf("candidates = %q", got)
	}

	// Explicit beats the environment.
	got = Candidates("/tmp/explicit.yaml")
	if len(got) != 1 || got[0] != "/tmp/explicit.yaml" {
		t.Fatalf("candidates = %q", got)
	}
}

func TestEnsureDefault_CreatesLoadableConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(EnvConfigPath, "")

	path, created, err := EnsureDefault()
	if err != nil {
		t.Fatalf("EnsureDefault: %v", err)
	}
	if !created {
		t.Fatal("expected a new file")
	}
	if _, _, err := Load(path); err != nil {
		t.Fatalf("default config does not load: %v", err)
	}

	// Second call leaves the existing file alone.
	_, created, err = EnsureDefault()
	if err != nil {
		t.Fatalf("second EnsureDefault: %v", err)
	}
	if created {
		t.Fatal("expected no rewrite of an existing config")
	}
}
