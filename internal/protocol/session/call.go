package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/sc2ctl/internal/protocol"
)

// Do sends payload and narrows the response to T. A T that cannot pair
// with payload's kind fails before any I/O.
func Do[T protocol.ResponsePayload](ctx context.Context, c *Client, payload protocol.RequestPayload) (Res[T], error) {
	var zero T
	kind := protocol.KindOf(payload)
	if any(zero) != nil && zero.Kind() != kind {
		return Res[T]{}, &BadResponseError{Got: zero.Kind(), Expected: kind}
	}
	res, err := c.Send(ctx, payload)
	if err != nil {
		return Res[T]{}, err
	}
	data, ok := res.Data.(T)
	if !ok {
		return Res[T]{}, &BadResponseError{Got: protocol.ResponseKindOf(res.Data), Expected: kind}
	}
	return Res[T]{Data: data, Status: res.Status, Warnings: res.Warnings}, nil
}

// Call is an exchange running on its own goroutine.
type Call struct {
	Request protocol.Request
	Res     Res[protocol.ResponsePayload]
	Error   error
	Done    chan *Call // Receives the Call when the exchange completes.
}

func (call *Call) done() {
	select {
	case call.Done <- call:
	default:
		log.Warn().Msgf("session.Call.done kind=%s discarded: Done channel full", call.Request.Kind())
	}
}

// Go starts Exchange asynchronously. If done is nil a channel is
// allocated; otherwise it must be buffered. Calls serialize on the
// client exactly like blocking exchanges.
func (c *Client) Go(ctx context.Context, req protocol.Request, done chan *Call) *Call {
	if done == nil {
		done = make(chan *Call, 1)
	} else if cap(done) == 0 {
		log.Panic().Msg("session: done channel is unbuffered")
	}
	call := &Call{Request: req, Done: done}
	go func() {
		call.Res, call.Error = c.Exchange(ctx, req)
		call.done()
	}()
	return call
}
