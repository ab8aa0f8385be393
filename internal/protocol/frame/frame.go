// Package frame carries encoded sc2api messages as binary websocket
// frames. One message is exactly one frame.
package frame

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
)

var (
	ErrClosed          = errors.New("frame: connection closed")
	ErrTextFrame       = errors.New("frame: unexpected text frame")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrQueueFull       = errors.New("frame: write queue full")
)

// Limits constrains frame memory use.
type Limits struct {
	MaxPayloadBytes int64
	MaxQueuedFrames int
}

// DefaultLimits fits full-resolution observations of the real peer.
func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 64 * 1024 * 1024,
		MaxQueuedFrames: 64,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxPayloadBytes <= 0 {
		l.MaxPayloadBytes = d.MaxPayloadBytes
	}
	if l.MaxQueuedFrames <= 0 {
		l.MaxQueuedFrames = d.MaxQueuedFrames
	}
	return l
}

// Conn is a binary frame stream over one websocket. Reads and writes
// may run on different goroutines; concurrent readers are not supported.
type Conn struct {
	ws     *websocket.Conn
	limits Limits

	mu    sync.Mutex
	queue [][]byte

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New takes ownership of ws.
func New(ws *websocket.Conn, limits Limits) *Conn {
	limits = limits.withDefaults()
	ws.SetReadLimit(limits.MaxPayloadBytes)
	return &Conn{ws: ws, limits: limits}
}

func (c *Conn) Limits() Limits { return c.limits }

// ReadFrame blocks for the next binary frame. Cancelling ctx closes
// the underlying websocket.
func (c *Conn) ReadFrame(ctx context.Context) ([]byte, error) {
	typ, b, err := c.ws.Read(ctx)
	if err != nil {
		return nil, c.mapErr(err)
	}
	if typ != websocket.MessageBinary {
		return nil, ErrTextFrame
	}
	return b, nil
}

// WriteFrame sends b as one binary frame.
func (c *Conn) WriteFrame(ctx context.Context, b []byte) error {
	if int64(len(b)) > c.limits.MaxPayloadBytes {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(b), c.limits.MaxPayloadBytes)
	}
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.ws.Write(ctx, websocket.MessageBinary, b); err != nil {
		return c.mapErr(err)
	}
	return nil
}

// Feed queues b for the next Flush.
func (c *Conn) Feed(b []byte) error {
	if int64(len(b)) > c.limits.MaxPayloadBytes {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(b), c.limits.MaxPayloadBytes)
	}
	if c.closed.Load() {
		return ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) >= c.limits.MaxQueuedFrames {
		return ErrQueueFull
	}
	c.queue = append(c.queue, b)
	return nil
}

// Queued reports the number of frames waiting for Flush.
func (c *Conn) Queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Flush writes queued frames in order. Frames not yet written when an
// error occurs stay queued.
func (c *Conn) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.queue) > 0 {
		if c.closed.Load() {
			return ErrClosed
		}
		if err := c.ws.Write(ctx, websocket.MessageBinary, c.queue[0]); err != nil {
			return c.mapErr(err)
		}
		c.queue[0] = nil
		c.queue = c.queue[1:]
	}
	c.queue = nil
	return nil
}

// Close performs the websocket close handshake. Repeated calls return
// the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err := c.ws.Close(websocket.StatusNormalClosure, "")
		if err != nil && !isClosedErr(err) {
			c.closeErr = err
		}
	})
	return c.closeErr
}

// CloseNow drops the connection without waiting for the peer's close
// frame. Frames already written are still delivered.
func (c *Conn) CloseNow() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err := c.ws.CloseNow()
		if err != nil && !isClosedErr(err) {
			c.closeErr = err
		}
	})
	return c.closeErr
}

func (c *Conn) mapErr(err error) error {
	if c.closed.Load() || isClosedErr(err) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}

func isClosedErr(err error) bool {
	return websocket.CloseStatus(err) != -1 ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
