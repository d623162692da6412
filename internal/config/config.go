package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/rconctl/internal/logging"
	"github.com/danmuck/rconctl/internal/protocol/frame"
	"github.com/danmuck/rconctl/internal/protocol/session"
)

const (
	EnvConfigPath = "RCONCTL_CONFIG"
	appDir        = "rconctl"
	fileName      = "config.toml"
)

// Config is the console configuration.
type Config struct {
	Host           string
	Port           int
	Password       string
	HistoryFile    string
	HistoryLimit   int
	ConnectTimeout time.Duration
	// ReadTimeout of zero waits for a reply for as long as the server takes.
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxFrameBytes int
	MetricsAddr   string
	// MetricsCorsOrigins are browser origins allowed to read the metrics endpoints.
	MetricsCorsOrigins []string
	MetricsToken       string
	LogLevel           string
}

type fileConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	Password       string   `toml:"password"`
	HistoryFile    string   `toml:"history_file"`
	HistoryLimit   int      `toml:"history_limit"`
	ConnectTimeout string   `toml:"connect_timeout"`
	ReadTimeout    string   `toml:"read_timeout"`
	WriteTimeout   string   `toml:"write_timeout"`
	MaxFrameBytes  int      `toml:"max_frame_bytes"`
	MetricsAddr    string   `toml:"metrics_addr"`
	MetricsCors    []string `toml:"metrics_cors_origins,omitempty"`
	MetricsToken   string   `toml:"metrics_token"`
	LogLevel       string   `toml:"log_level"`
}

func DefaultConfig() Config {
	sess := session.DefaultConfig()
	return Config{
		Host:           "localhost",
		Port:           25575,
		Password:       "",
		HistoryFile:    "~/.rconctl_history",
		HistoryLimit:   1000,
		ConnectTimeout: sess.ConnectTimeout,
		ReadTimeout:    sess.ReadTimeout,
		WriteTimeout:   sess.WriteTimeout,
		MaxFrameBytes:  sess.Limits.MaxFrameBytes,
		MetricsAddr:    "",
		MetricsToken:   "",
		LogLevel:       "info",
	}
}

// Load reads path over DefaultConfig. Keys absent from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("password") {
		cfg.Password = raw.Password
	}
	if meta.IsDefined("history_file") {
		cfg.HistoryFile = strings.TrimSpace(raw.HistoryFile)
	}
	if meta.IsDefined("history_limit") {
		cfg.HistoryLimit = raw.HistoryLimit
	}
	durations := []struct {
		key string
		raw string
		out *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.ConnectTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.WriteTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.out = v
	}
	if meta.IsDefined("max_frame_bytes") {
		cfg.MaxFrameBytes = raw.MaxFrameBytes
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("metrics_cors_origins") {
		cfg.MetricsCorsOrigins = normalizeOrigins(raw.MetricsCors)
	}
	if meta.IsDefined("metrics_token") {
		cfg.MetricsToken = strings.TrimSpace(raw.MetricsToken)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrCreate loads path, first writing the default template when no file exists.
func LoadOrCreate(path string) (Config, bool, error) {
	created := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := WriteTemplate(path, false); err != nil {
			return Config{}, false, err
		}
		created = true
	}
	cfg, err := Load(path)
	return cfg, created, err
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 1..65535", c.Port)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative")
	}
	if c.ConnectTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.MaxFrameBytes < 0 || (c.MaxFrameBytes > 0 && c.MaxFrameBytes < frame.MinSize) {
		return fmt.Errorf("max_frame_bytes must be 0 or at least %d", frame.MinSize)
	}
	if _, ok := logging.ParseLevel(c.LogLevel); c.LogLevel != "" && !ok {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Session maps the connection settings onto a session config.
func (c Config) Session() session.Config {
	cfg := session.DefaultConfig()
	cfg.ConnectTimeout = c.ConnectTimeout
	cfg.ReadTimeout = c.ReadTimeout
	cfg.WriteTimeout = c.WriteTimeout
	if c.MaxFrameBytes > 0 {
		cfg.Limits.MaxFrameBytes = c.MaxFrameBytes
	}
	return cfg.WithDefaults()
}

// Encode writes c as TOML using the file key names.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(fileConfig{
		Host:           c.Host,
		Port:           c.Port,
		Password:       c.Password,
		HistoryFile:    c.HistoryFile,
		HistoryLimit:   c.HistoryLimit,
		ConnectTimeout: c.ConnectTimeout.String(),
		ReadTimeout:    c.ReadTimeout.String(),
		WriteTimeout:   c.WriteTimeout.String(),
		MaxFrameBytes:  c.MaxFrameBytes,
		MetricsAddr:    c.MetricsAddr,
		MetricsCors:    c.MetricsCorsOrigins,
		MetricsToken:   c.MetricsToken,
		LogLevel:       c.LogLevel,
	})
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimRight(strings.TrimSpace(origin), "/")
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Path picks the config file: the explicit flag value, then $RCONCTL_CONFIG,
// then $XDG_CONFIG_HOME/rconctl/config.toml, then ~/.config/rconctl/config.toml.
func Path(flagValue string) (string, error) {
	if p := strings.TrimSpace(flagValue); p != "" {
		return ExpandHome(p)
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return ExpandHome(p)
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir, fileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return filepath.Join(home, ".config", appDir, fileName), nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
