package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/danmuck/sc2ctl/internal/observability"
	"github.com/danmuck/sc2ctl/internal/protocol"
	"github.com/danmuck/sc2ctl/internal/protocol/frame"
)

// APIPath is the only resource the peer upgrades.
const APIPath = "/sc2api"

var (
	ErrInvalidAddress    = errors.New("session: invalid address")
	ErrHandshakeRejected = errors.New("session: handshake rejected")
)

// URL turns host:port or a ws(s) URL into the API endpoint. A URL
// without a path gets APIPath.
func URL(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if strings.Contains(addr, "://") {
		u, err := url.Parse(addr)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
		}
		switch u.Scheme {
		case "ws", "wss", "http", "https":
		default:
			return "", fmt.Errorf("%w: scheme %q", ErrInvalidAddress, u.Scheme)
		}
		if u.Host == "" {
			return "", fmt.Errorf("%w: missing host in %q", ErrInvalidAddress, addr)
		}
		if u.Path == "" || u.Path == "/" {
			u.Path = APIPath
		}
		return u.String(), nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return "ws://" + net.JoinHostPort(host, port) + APIPath, nil
}

// Dial upgrades a websocket to the peer, retrying while the peer is not
// yet listening. Retries stop on success, a rejected handshake, ctx
// cancellation, cfg.ConnectTimeout or cfg.MaxConnectAttempts.
func Dial(ctx context.Context, addr string, cfg Config) (*frame.Conn, error) {
	cfg = cfg.WithDefaults()
	log := cfg.logger()
	target, err := URL(addr)
	if err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now()
	var attempt int
	for {
		attempt++
		ws, err := dialOnce(ctx, target, cfg.HandshakeTimeout)
		if err == nil {
			observability.RecordHandshake("ok", attempt, time.Since(start))
			log.Info().Msgf("session.Dial connected url=%q attempt=%d", target, attempt)
			return frame.New(ws, cfg.Limits), nil
		}
		log.Debug().Msgf("session.Dial attempt=%d url=%q err=%v", attempt, target, err)
		if !retryable(ctx, err) || !shouldRetry(cfg, attempt) {
			observability.RecordHandshake("failed", attempt, time.Since(start))
			log.Warn().Msgf("session.Dial giving up url=%q attempts=%d err=%v", target, attempt, err)
			return nil, transportErr(err)
		}
		if serr := sleepBackoff(ctx, cfg, attempt, rng); serr != nil {
			observability.RecordHandshake("timeout", attempt, time.Since(start))
			log.Warn().Msgf("session.Dial deadline url=%q attempts=%d err=%v", target, attempt, err)
			return nil, transportErr(fmt.Errorf("%w after %d attempts, last: %v", serr, attempt, err))
		}
	}
}

// Connect dials and wraps the connection in a Client. With
// cfg.ProbeStatus it pings once so Status reflects the peer.
func Connect(ctx context.Context, addr string, cfg Config) (*Client, error) {
	conn, err := Dial(ctx, addr, cfg)
	if err != nil {
		return nil, err
	}
	c := NewClient(conn, cfg)
	if cfg.ProbeStatus {
		if _, err := c.Send(ctx, &protocol.PingRequest{}); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

func dialOnce(ctx context.Context, target string, timeout time.Duration) (*websocket.Conn, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ws, resp, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: http %d: %w", ErrHandshakeRejected, resp.StatusCode, err)
		}
		return nil, err
	}
	return ws, nil
}

// retryable is false once the peer answered the upgrade with a status
// or the caller's context is done.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, ErrHandshakeRejected) && !errors.Is(err, ErrInvalidAddress)
}

func shouldRetry(cfg Config, attempt int) bool {
	if cfg.MaxConnectAttempts <= 0 {
		return true
	}
	return attempt < cfg.MaxConnectAttempts
}

func sleepBackoff(ctx context.Context, cfg Config, attempt int, rng *rand.Rand) error {
	delay := NextBackoffDelay(cfg.Backoff, attempt, rng)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
