package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/sc2ctl/internal/observability"
	"github.com/danmuck/sc2ctl/internal/protocol"
	"github.com/danmuck/sc2ctl/internal/protocol/frame"
)

// Transport is the byte-frame stream a Client runs on. *frame.Conn
// implements it.
type Transport interface {
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(ctx context.Context, b []byte) error
	Close() error
}

// Client drives one peer connection. Exchanges are serialized: a second
// caller blocks until the in-flight exchange has its response.
type Client struct {
	t   Transport
	cfg Config
	log zerolog.Logger

	mu     sync.Mutex
	status atomic.Int32
	closed atomic.Bool
}

func NewClient(t Transport, cfg Config) *Client {
	cfg = cfg.WithDefaults()
	return &Client{t: t, cfg: cfg, log: cfg.logger()}
}

// Status returns the last validated peer status, StatusUnset before
// the first successful exchange.
func (c *Client) Status() protocol.Status {
	return protocol.Status(c.status.Load())
}

// Send exchanges payload with correlation id 0.
func (c *Client) Send(ctx context.Context, payload protocol.RequestPayload) (Res[protocol.ResponsePayload], error) {
	return c.Exchange(ctx, protocol.Request{Payload: payload})
}

// Exchange writes req, waits for exactly one response and validates it.
// The client status changes only when every check passes.
func (c *Client) Exchange(ctx context.Context, req protocol.Request) (Res[protocol.ResponsePayload], error) {
	start := time.Now()
	kind := req.Kind()
	res, err := c.exchange(ctx, kind, req)
	class := ClassOf(err)
	observability.RecordExchange(kind.String(), class.String(), time.Since(start))
	if err != nil {
		c.log.Warn().Err(err).Msgf("session.Client.Exchange kind=%s class=%s status=%s", kind, class, c.Status())
		return res, err
	}
	c.log.Debug().Msgf("session.Client.Exchange kind=%s status=%s warnings=%d", kind, res.Status, len(res.Warnings))
	return res, nil
}

func (c *Client) exchange(ctx context.Context, kind protocol.Kind, req protocol.Request) (Res[protocol.ResponsePayload], error) {
	var res Res[protocol.ResponsePayload]
	if !kind.Valid() {
		return res, ErrNoPayload
	}
	b, err := protocol.EncodeRequest(req)
	if err != nil {
		return res, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return res, transportErr(ErrClientClosed)
	}

	if err := c.write(ctx, b); err != nil {
		return res, transportErr(err)
	}
	raw, err := c.read(ctx)
	if err != nil {
		if errors.Is(err, frame.ErrTextFrame) {
			return res, decodeErr(err)
		}
		return res, transportErr(err)
	}
	resp, err := protocol.DecodeResponse(raw)
	if err != nil {
		return res, decodeErr(err)
	}

	got := resp.Kind()
	if got != protocol.KindNone && got != kind {
		return res, &BadResponseError{Got: got, Expected: kind}
	}
	if err := Classify(resp); err != nil {
		return res, err
	}
	previous := c.Status()
	status, err := ValidateStatus(kind, resp.Status, previous)
	if err != nil {
		return res, err
	}
	c.status.Store(int32(status))

	res.Data = resp.Payload
	res.Status = resp.Status
	res.Warnings = resp.Warnings
	return res, nil
}

func (c *Client) write(ctx context.Context, b []byte) error {
	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}
	return c.t.WriteFrame(ctx, b)
}

func (c *Client) read(ctx context.Context) ([]byte, error) {
	if c.cfg.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ReadTimeout)
		defer cancel()
	}
	return c.t.ReadFrame(ctx)
}

// Close closes the transport. A pending exchange fails with a transport
// error; later exchanges fail without I/O.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.log.Debug().Msgf("session.Client.Close status=%s", c.Status())
	return c.t.Close()
}
