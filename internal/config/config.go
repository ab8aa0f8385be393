// Package config loads sc2ctl settings from TOML. Keys absent from the
// file keep their defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/sc2ctl/internal/launcher"
	"github.com/danmuck/sc2ctl/internal/logging"
	"github.com/danmuck/sc2ctl/internal/protocol/session"
)

const DefaultAddr = "[::1]:5000"

var ErrInvalid = errors.New("config: invalid")

// MockConfig drives `sc2ctl mock`.
type MockConfig struct {
	Addr        string
	MetricsAddr string
	GameLoops   uint32
}

type Config struct {
	// Addr is the peer the client commands connect to.
	Addr     string
	Log      logging.Config
	Session  session.Config
	Launcher launcher.Launcher
	Mock     MockConfig
}

func Default() Config {
	return Config{
		Addr:     DefaultAddr,
		Log:      logging.DefaultConfig(logging.ProfileRuntime),
		Session:  session.DefaultConfig(),
		Launcher: launcher.Default(),
		Mock:     MockConfig{Addr: "127.0.0.1:5000", GameLoops: 100},
	}
}

type fileConfig struct {
	Addr     string       `toml:"addr"`
	Log      fileLog      `toml:"log"`
	Session  fileSession  `toml:"session"`
	Launcher fileLauncher `toml:"launcher"`
	Mock     fileMock     `toml:"mock"`
}

type fileLog struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	Timestamp bool   `toml:"timestamp"`
	NoColor   bool   `toml:"no_color"`
}

type fileSession struct {
	ConnectTimeout     string `toml:"connect_timeout"`
	HandshakeTimeout   string `toml:"handshake_timeout"`
	ReadTimeout        string `toml:"read_timeout"`
	WriteTimeout       string `toml:"write_timeout"`
	MaxConnectAttempts int    `toml:"max_connect_attempts"`
	ProbeStatus        bool   `toml:"probe_status"`
	RetryInterval      string `toml:"retry_interval"`
	MaxPayloadBytes    int64  `toml:"max_payload_bytes"`
	MaxQueuedFrames    int    `toml:"max_queued_frames"`
}

type fileLauncher struct {
	Addr        string   `toml:"addr"`
	GameDir     string   `toml:"game_dir"`
	Version     string   `toml:"version"`
	Executable  string   `toml:"executable"`
	WorkDir     string   `toml:"work_dir"`
	DataDir     string   `toml:"data_dir"`
	TempDir     string   `toml:"temp_dir"`
	DataVersion string   `toml:"data_version"`
	Verbose     bool     `toml:"verbose"`
	DisplayMode string   `toml:"display_mode"`
	EGLPath     string   `toml:"egl_path"`
	OSMesaPath  string   `toml:"osmesa_path"`
	Extra       []string `toml:"extra"`
	OnClose     string   `toml:"on_close"`
}

type fileMock struct {
	Addr        string `toml:"addr"`
	MetricsAddr string `toml:"metrics_addr"`
	GameLoops   uint32 `toml:"game_loops"`
}

// Load reads path over Default. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %s", ErrInvalid, undecoded[0])
	}
	if err := apply(&cfg, raw, meta); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func apply(cfg *Config, raw fileConfig, meta toml.MetaData) error {
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
		cfg.Launcher.Addr = cfg.Addr
	}
	if err := applyLog(&cfg.Log, raw.Log, meta); err != nil {
		return err
	}
	if err := applySession(&cfg.Session, raw.Session, meta); err != nil {
		return err
	}
	if err := applyLauncher(&cfg.Launcher, raw.Launcher, meta); err != nil {
		return err
	}

	if meta.IsDefined("mock", "addr") {
		cfg.Mock.Addr = strings.TrimSpace(raw.Mock.Addr)
	}
	if meta.IsDefined("mock", "metrics_addr") {
		cfg.Mock.MetricsAddr = strings.TrimSpace(raw.Mock.MetricsAddr)
	}
	if meta.IsDefined("mock", "game_loops") {
		cfg.Mock.GameLoops = raw.Mock.GameLoops
	}
	return nil
}

func applyLog(cfg *logging.Config, raw fileLog, meta toml.MetaData) error {
	if meta.IsDefined("log", "level") {
		lvl, ok := logging.ParseLevel(raw.Level)
		if !ok {
			return fmt.Errorf("%w: log.level %q", ErrInvalid, raw.Level)
		}
		cfg.Level = lvl
	}
	if meta.IsDefined("log", "format") {
		switch strings.ToLower(strings.TrimSpace(raw.Format)) {
		case "json":
			cfg.JSON = true
		case "console", "text":
			cfg.JSON = false
		default:
			return fmt.Errorf("%w: log.format %q", ErrInvalid, raw.Format)
		}
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Timestamp = raw.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.NoColor = raw.NoColor
	}
	return nil
}

func applySession(cfg *session.Config, raw fileSession, meta toml.MetaData) error {
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.ConnectTimeout},
		{"handshake_timeout", raw.HandshakeTimeout, &cfg.HandshakeTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.WriteTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined("session", d.key) {
			continue
		}
		v, err := parseDuration("session."+d.key, d.raw)
		if err != nil {
			return err
		}
		*d.dst = v
	}
	if meta.IsDefined("session", "retry_interval") {
		v, err := parseDuration("session.retry_interval", raw.RetryInterval)
		if err != nil {
			return err
		}
		cfg.Backoff = session.FixedBackoff(v)
	}
	if meta.IsDefined("session", "max_connect_attempts") {
		cfg.MaxConnectAttempts = raw.MaxConnectAttempts
	}
	if meta.IsDefined("session", "probe_status") {
		cfg.ProbeStatus = raw.ProbeStatus
	}
	if meta.IsDefined("session", "max_payload_bytes") {
		cfg.Limits.MaxPayloadBytes = raw.MaxPayloadBytes
	}
	if meta.IsDefined("session", "max_queued_frames") {
		cfg.Limits.MaxQueuedFrames = raw.MaxQueuedFrames
	}
	return nil
}

func applyLauncher(l *launcher.Launcher, raw fileLauncher, meta toml.MetaData) error {
	strs := []struct {
		key string
		raw string
		dst *string
	}{
		{"addr", raw.Addr, &l.Addr},
		{"game_dir", raw.GameDir, &l.GameDir},
		{"version", raw.Version, &l.Version},
		{"executable", raw.Executable, &l.Executable},
		{"work_dir", raw.WorkDir, &l.WorkDir},
		{"data_dir", raw.DataDir, &l.DataDir},
		{"temp_dir", raw.TempDir, &l.TempDir},
		{"data_version", raw.DataVersion, &l.DataVersion},
		{"egl_path", raw.EGLPath, &l.EGLPath},
		{"osmesa_path", raw.OSMesaPath, &l.OSMesaPath},
	}
	for _, s := range strs {
		if meta.IsDefined("launcher", s.key) {
			*s.dst = strings.TrimSpace(s.raw)
		}
	}
	if meta.IsDefined("launcher", "verbose") {
		l.Verbose = raw.Verbose
	}
	if meta.IsDefined("launcher", "display_mode") {
		l.DisplayMode = launcher.DisplayMode(strings.ToLower(strings.TrimSpace(raw.DisplayMode)))
	}
	if meta.IsDefined("launcher", "extra") {
		l.Extra = append([]string(nil), raw.Extra...)
	}
	if meta.IsDefined("launcher", "on_close") {
		policy, err := launcher.ParseOnClose(raw.OnClose)
		if err != nil {
			return err
		}
		l.OnClose = policy
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalid, key)
	}
	return d, nil
}

// Validate checks the fields a command cannot recover from.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr is required", ErrInvalid)
	}
	if _, err := session.URL(c.Addr); err != nil {
		return fmt.Errorf("%w: addr: %w", ErrInvalid, err)
	}
	switch c.Launcher.DisplayMode {
	case launcher.DisplayDefault, launcher.DisplayWindowed, launcher.DisplayBorderless, launcher.DisplayFullscreen:
	default:
		return fmt.Errorf("%w: launcher.display_mode %q", ErrInvalid, string(c.Launcher.DisplayMode))
	}
	if c.Launcher.EGLPath != "" && c.Launcher.OSMesaPath != "" {
		return fmt.Errorf("%w: %w", ErrInvalid, launcher.ErrRenderingLibConflict)
	}
	if c.Session.Limits.MaxPayloadBytes < 0 || c.Session.Limits.MaxQueuedFrames < 0 {
		return fmt.Errorf("%w: session limits must not be negative", ErrInvalid)
	}
	return nil
}

// LogLevel is the configured level as text, for flag defaults.
func (c Config) LogLevel() string {
	return c.Log.Level.String()
}

// Encode renders c in the file layout Load reads.
func Encode(c Config) (string, error) {
	format := "console"
	if c.Log.JSON {
		format = "json"
	}
	l := c.Launcher
	raw := fileConfig{
		Addr: c.Addr,
		Log: fileLog{
			Level:     c.Log.Level.String(),
			Format:    format,
			Timestamp: c.Log.Timestamp,
			NoColor:   c.Log.NoColor,
		},
		Session: fileSession{
			ConnectTimeout:     c.Session.ConnectTimeout.String(),
			HandshakeTimeout:   c.Session.HandshakeTimeout.String(),
			ReadTimeout:        c.Session.ReadTimeout.String(),
			WriteTimeout:       c.Session.WriteTimeout.String(),
			MaxConnectAttempts: c.Session.MaxConnectAttempts,
			ProbeStatus:        c.Session.ProbeStatus,
			RetryInterval:      c.Session.Backoff.InitialDelay.String(),
			MaxPayloadBytes:    c.Session.Limits.MaxPayloadBytes,
			MaxQueuedFrames:    c.Session.Limits.MaxQueuedFrames,
		},
		Launcher: fileLauncher{
			Addr:        l.Addr,
			GameDir:     l.GameDir,
			Version:     l.Version,
			Executable:  l.Executable,
			WorkDir:     l.WorkDir,
			DataDir:     l.DataDir,
			TempDir:     l.TempDir,
			DataVersion: l.DataVersion,
			Verbose:     l.Verbose,
			DisplayMode: string(l.DisplayMode),
			EGLPath:     l.EGLPath,
			OSMesaPath:  l.OSMesaPath,
			Extra:       l.Extra,
			OnClose:     string(l.OnClose),
		},
		Mock: fileMock{
			Addr:        c.Mock.Addr,
			MetricsAddr: c.Mock.MetricsAddr,
			GameLoops:   c.Mock.GameLoops,
		},
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return buf.String(), nil
}
