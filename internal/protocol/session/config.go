package session

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/sc2ctl/internal/logging"
	"github.com/danmuck/sc2ctl/internal/protocol/frame"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines connection and exchange behavior. Zero durations
// disable the corresponding timeout.
type Config struct {
	// ConnectTimeout bounds the whole Dial retry loop.
	ConnectTimeout time.Duration
	// HandshakeTimeout bounds a single websocket upgrade attempt.
	HandshakeTimeout time.Duration
	// ReadTimeout bounds waiting for a response. Expiry closes the
	// connection.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MaxConnectAttempts of 0 retries until ConnectTimeout.
	MaxConnectAttempts int
	// ProbeStatus makes Connect send a Ping and adopt its status.
	ProbeStatus bool
	Backoff     BackoffConfig
	Limits      frame.Limits
	Logger      *zerolog.Logger
}

// DefaultConfig suits a locally launched game, which needs a few
// seconds before it accepts connections.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:   60 * time.Second,
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     15 * time.Second,
		Backoff:          FixedBackoff(time.Second),
		Limits:           frame.DefaultLimits(),
	}
}

// WithDefaults fills unset transport limits, backoff and logger.
// Timeouts are left as given.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = d.Backoff
	}
	if c.Limits.MaxPayloadBytes <= 0 {
		c.Limits.MaxPayloadBytes = d.Limits.MaxPayloadBytes
	}
	if c.Limits.MaxQueuedFrames <= 0 {
		c.Limits.MaxQueuedFrames = d.Limits.MaxQueuedFrames
	}
	if c.Logger == nil {
		l := logging.Component("session")
		c.Logger = &l
	}
	return c
}

func (c Config) logger() zerolog.Logger {
	if c.Logger == nil {
		return logging.Component("session")
	}
	return *c.Logger
}
