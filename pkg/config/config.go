// Package config loads the serialtui configuration file: the port
// table plus logging and script locations. Discovery follows the
// usual order of explicit flag, environment override, then the XDG
// config directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"serialtui/pkg/serial"
)

// ErrConfigNotFound means no configuration file exists at any
// candidate path.
var ErrConfigNotFound = errors.New("config file not found")

// EnvConfigPath overrides config discovery when set.
const EnvConfigPath = "SERIALTUI_CONFIG"

// LogConfig controls the per-port line log files.
type LogConfig struct {
	Dir      string `yaml:"dir,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// Config is the full on-disk configuration.
type Config struct {
	Ports       []serial.PortConfig `yaml:"ports"`
	Logs        LogConfig           `yaml:"logs,omitempty"`
	ScriptDir   string              `yaml:"script_dir,omitempty"`
	AutoConnect *bool               `yaml:"auto_connect,omitempty"`
}

// ShouldAutoConnect reports whether ports connect on startup.
// Unset means yes.
func (c *Config) ShouldAutoConnect() bool {
	return c.AutoConnect == nil || *c.AutoConnect
}

// Validate applies defaults and checks the port table for per-port
// problems and cross-port collisions.
func (c *Config) Validate() error {
	if len(c.Ports) == 0 {
		return fmt.Errorf("config has no ports")
	}
	names := make(map[string]bool, len(c.Ports))
	paths := make(map[string]string, len(c.Ports))
	for i := range c.Ports {
		c.Ports[i] = c.Ports[i].WithDefaults()
		p := c.Ports[i]
		if err := p.Validate(); err != nil {
			return fmt.Errorf("port %d: %w", i+1, err)
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate port name %q", p.Name)
		}
		if owner, dup := paths[p.Path]; dup {
			return fmt.Errorf("ports %q and %q share path %q", owner, p.Name, p.Path)
		}
		names[p.Name] = true
		paths[p.Path] = p.Name
	}
	return nil
}

// Candidates returns config paths in priority order. explicit may be
// empty.
func Candidates(explicit string) []string {
	if explicit != "" {
		return []string{expandPath(explicit)}
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return []string{expandPath(env)}
	}
	var out []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, "serialtui", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out, filepath.Join(home, ".config", "serialtui", "config.yaml"))
	}
	return out
}

// Load reads and validates the first config found. The second return
// is the path that was used.
func Load(explicit string) (*Config, string, error) {
	candidates := Candidates(explicit)
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("read config %s: %w", path, err)
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, "", fmt.Errorf("config %s: %w", path, err)
		}
		return &cfg, path, nil
	}
	return nil, "", fmt.Errorf("%w (looked in %s)", ErrConfigNotFound, strings.Join(candidates, ", "))
}

const defaultConfig = `# serialtui configuration.
#
# Each port needs a unique name and a device path. Everything else
# falls back to 115200 8N1 with LF line endings.
ports:
  - name: GPS
    path: /dev/ttyUSB0
    baud_rate: 9600
    line_ending: crlf
    color: green
  - name: MODEM
    path: /dev/ttyUSB1
    color: cyan

# logs:
#   dir: ~/.local/share/serialtui/logs
#   disabled: false

# script_dir: ~/.config/serialtui/scripts

# auto_connect: true
`

// EnsureDefault writes a commented starter config to the first
// discovery path if no config exists yet. Returns the path and
// whether a file was created.
func EnsureDefault() (string, bool, error) {
	candidates := Candidates("")
	if len(candidates) == 0 {
		return "", false, fmt.Errorf("no config directory available")
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, false, nil
		}
	}

	path := candidates[0]
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("create config dir: %w", err)
	}
	// Write to a temp file first so a crash never leaves a torn
	// config behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(defaultConfig), 0o644); err != nil {
		return "", false, fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", false, fmt.Errorf("write config: %w", err)
	}
	return path, true, nil
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) string {
	return expandPath(path)
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
