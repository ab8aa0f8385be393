package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/sc2ctl/internal/protocol"
	"github.com/danmuck/sc2ctl/internal/protocol/frame"
	"github.com/danmuck/sc2ctl/internal/testutil/testlog"
)

// fakeTransport answers every written request with reply(req). A nil
// reply leaves the client waiting.
type fakeTransport struct {
	reply func(protocol.Request) []byte

	inbox  chan []byte
	closed chan struct{}
	once   sync.Once

	writes   atomic.Int32
	inflight atomic.Int32
	overlap  atomic.Bool
}

func newFakeTransport(reply func(protocol.Request) []byte) *fakeTransport {
	return &fakeTransport{
		reply:  reply,
		inbox:  make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) WriteFrame(_ context.Context, b []byte) error {
	select {
	case <-f.closed:
		return frame.ErrClosed
	default:
	}
	req, err := protocol.DecodeRequest(b)
	if err != nil {
		return err
	}
	f.writes.Add(1)
	if f.inflight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	if out := f.reply(req); out != nil {
		f.inbox <- out
	}
	return nil
}

func (f *fakeTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case b := <-f.inbox:
		f.inflight.Add(-1)
		return b, nil
	case <-f.closed:
		return nil, fmt.Errorf("%w: fake transport", frame.ErrClosed)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func encodeResponse(t *testing.T, resp protocol.Response) []byte {
	t.Helper()
	b, err := protocol.EncodeResponse(resp)
	require.NoError(t, err)
	return b
}

// lifecycleReply answers like a healthy game: Ping keeps the status,
// lifecycle requests move it forward.
func lifecycleReply(t *testing.T) func(protocol.Request) []byte {
	status := protocol.StatusLaunched
	var mu sync.Mutex
	return func(req protocol.Request) []byte {
		mu.Lock()
		defer mu.Unlock()
		p, err := protocol.NewResponsePayload(req.Kind())
		require.NoError(t, err)
		switch req.Kind() {
		case protocol.KindCreateGame:
			status = protocol.StatusInitGame
		case protocol.KindJoinGame:
			status = protocol.StatusInGame
		case protocol.KindQuit:
			status = protocol.StatusQuit
		}
		if ping, ok := p.(*protocol.PingResponse); ok {
			ping.GameVersion = "5.0.14"
		}
		return encodeResponse(t, protocol.Response{ID: req.ID, Payload: p, Status: status})
	}
}

func testClient(t *testing.T, reply func(protocol.Request) []byte) (*Client, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport(reply)
	c := NewClient(ft, DefaultConfig())
	t.Cleanup(func() { _ = c.Close() })
	return c, ft
}

func TestPingOnFreshSessionAdoptsStatus(t *testing.T) {
	testlog.Start(t)
	c, _ := testClient(t, lifecycleReply(t))
	ctx := context.Background()

	require.Equal(t, protocol.StatusUnset, c.Status())
	res, err := c.Send(ctx, &protocol.PingRequest{})
	require.NoError(t, err)
	require.Equal(t, protocol.StatusLaunched, res.Status)
	require.Equal(t, protocol.StatusLaunched, c.Status())
	ping, ok := res.Data.(*protocol.PingResponse)
	require.True(t, ok)
	require.Equal(t, "5.0.14", ping.GameVersion)

	for i := 0; i < 5; i++ {
		require.Equal(t, protocol.StatusLaunched, c.Status())
	}
}

func TestCreateGameTransitions(t *testing.T) {
	testlog.Start(t)
	c, _ := testClient(t, lifecycleReply(t))
	ctx := context.Background()

	_, err := c.Send(ctx, &protocol.PingRequest{})
	require.NoError(t, err)
	_, err = c.Send(ctx, &protocol.CreateGameRequest{})
	require.NoError(t, err)
	require.Equal(t, protocol.StatusInitGame, c.Status())
}

func TestCreateGameUnchangedStatusIsBadStatus(t *testing.T) {
	testlog.Start(t)
	c, _ := testClient(t, func(req protocol.Request) []byte {
		p, _ := protocol.NewResponsePayload(req.Kind())
		return encodeResponse(t, protocol.Response{Payload: p, Status: protocol.StatusLaunched})
	})
	ctx := context.Background()

	_, err := c.Send(ctx, &protocol.PingRequest{})
	require.NoError(t, err)

	_, err = c.Send(ctx, &protocol.CreateGameRequest{})
	var bad *BadStatusError
	require.ErrorAs(t, err, &bad)
	require.Equal(t, &BadStatusError{Got: protocol.StatusLaunched, Expected: []protocol.Status{protocol.StatusInitGame}}, bad)
	require.Equal(t, ClassBadStatus, ClassOf(err))
	require.Equal(t, protocol.StatusLaunched, c.Status())
}

func TestMismatchedKindIsBadResponse(t *testing.T) {
	testlog.Start(t)
	c, _ := testClient(t, func(req protocol.Request) []byte {
		// wrong variant, with an embedded error and a surprising status
		return encodeResponse(t, protocol.Response{
			Payload: &protocol.CreateGameResponse{Error: protocol.CreateGameMissingMap},
			Status:  protocol.StatusEnded,
		})
	})

	_, err := c.Send(context.Background(), &protocol.GameInfoRequest{})
	var bad *BadResponseError
	require.ErrorAs(t, err, &bad)
	require.Equal(t, protocol.KindCreateGame, bad.Got)
	require.Equal(t, protocol.KindGameInfo, bad.Expected)
	require.Equal(t, protocol.StatusUnset, c.Status())
}

func TestJoinGameEmbeddedErrorKeepsStatus(t *testing.T) {
	testlog.Start(t)
	c, _ := testClient(t, func(req protocol.Request) []byte {
		if req.Kind() == protocol.KindJoinGame {
			return encodeResponse(t, protocol.Response{
				Payload: &protocol.JoinGameResponse{Error: protocol.JoinGameMissingParticipation, ErrorDetails: "no race"},
				Status:  protocol.StatusInitGame,
			})
		}
		p, _ := protocol.NewResponsePayload(req.Kind())
		return encodeResponse(t, protocol.Response{Payload: p, Status: protocol.StatusInitGame})
	})
	ctx := context.Background()

	_, err := c.Send(ctx, &protocol.PingRequest{})
	require.NoError(t, err)
	require.Equal(t, protocol.StatusInitGame, c.Status())

	_, err = c.Send(ctx, &protocol.JoinGameRequest{})
	var sc2 *Sc2Error
	require.ErrorAs(t, err, &sc2)
	require.Equal(t, &Sc2Error{
		Kind:    protocol.KindJoinGame,
		Code:    int32(protocol.JoinGameMissingParticipation),
		Message: "MissingParticipation",
		Detail:  "no race",
	}, sc2)
	require.Equal(t, protocol.StatusInitGame, c.Status())
}

func TestSplitJoinGameKeepsEmbeddedError(t *testing.T) {
	testlog.Start(t)
	c, _ := testClient(t, func(req protocol.Request) []byte {
		if req.Kind() == protocol.KindJoinGame {
			// two concatenated envelopes are one message with JoinGame split in two
			first := encodeResponse(t, protocol.Response{Payload: &protocol.JoinGameResponse{Error: protocol.JoinGameGameFull}})
			second := encodeResponse(t, protocol.Response{Payload: &protocol.JoinGameResponse{PlayerID: 7}, Status: protocol.StatusInGame})
			return append(first, second...)
		}
		p, _ := protocol.NewResponsePayload(req.Kind())
		return encodeResponse(t, protocol.Response{Payload: p, Status: protocol.StatusInitGame})
	})
	ctx := context.Background()

	_, err := c.Send(ctx, &protocol.PingRequest{})
	require.NoError(t, err)

	_, err = c.Send(ctx, &protocol.JoinGameRequest{})
	var sc2 *Sc2Error
	require.ErrorAs(t, err, &sc2)
	require.Equal(t, int32(protocol.JoinGameGameFull), sc2.Code)
	require.Equal(t, protocol.StatusInitGame, c.Status())
}

func TestEmptyResponseYieldsEmptyResponseError(t *testing.T) {
	testlog.Start(t)
	c, _ := testClient(t, func(protocol.Request) []byte {
		return encodeResponse(t, protocol.Response{Status: protocol.StatusLaunched, Warnings: []string{"unknown request"}})
	})

	_, err := c.Send(context.Background(), &protocol.DataRequest{})
	require.ErrorIs(t, err, ErrEmptyResponse)
	var sc2 *Sc2Error
	require.ErrorAs(t, err, &sc2)
	require.Equal(t, protocol.KindNone, sc2.Kind)
	require.Equal(t, "unknown request", sc2.Detail)
	require.Equal(t, protocol.StatusUnset, c.Status())
}

func TestDecodeErrorLeavesSessionUsable(t *testing.T) {
	testlog.Start(t)
	var calls atomic.Int32
	healthy := lifecycleReply(t)
	c, _ := testClient(t, func(req protocol.Request) []byte {
		if calls.Add(1) == 1 {
			return []byte{0x80}
		}
		return healthy(req)
	})
	ctx := context.Background()

	_, err := c.Send(ctx, &protocol.PingRequest{})
	require.ErrorIs(t, err, ErrDecode)
	require.ErrorIs(t, err, protocol.ErrDecode)
	require.Equal(t, ClassDecode, ClassOf(err))
	require.Equal(t, protocol.StatusUnset, c.Status())

	_, err = c.Send(ctx, &protocol.PingRequest{})
	require.NoError(t, err)
	require.Equal(t, protocol.StatusLaunched, c.Status())
}

func TestClosedTransportIsTransportError(t *testing.T) {
	testlog.Start(t)
	c, ft := testClient(t, lifecycleReply(t))
	require.NoError(t, ft.Close())

	_, err := c.Send(context.Background(), &protocol.PingRequest{})
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, frame.ErrClosed)
	require.Equal(t, ClassTransport, ClassOf(err))
}

func TestCloseFailsPendingExchange(t *testing.T) {
	testlog.Start(t)
	c, ft := testClient(t, func(protocol.Request) []byte { return nil })

	call := c.Go(context.Background(), protocol.Request{Payload: &protocol.ObservationRequest{}}, nil)
	require.Eventually(t, func() bool { return ft.writes.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case done := <-call.Done:
		require.ErrorIs(t, done.Error, ErrTransport)
		require.ErrorIs(t, done.Error, frame.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatalf("pending exchange never failed")
	}

	_, err := c.Send(context.Background(), &protocol.PingRequest{})
	require.ErrorIs(t, err, ErrClientClosed)
	require.NoError(t, c.Close())
}

func TestSendWithoutPayloadDoesNoIO(t *testing.T) {
	testlog.Start(t)
	c, ft := testClient(t, lifecycleReply(t))

	_, err := c.Send(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoPayload)
	require.Equal(t, ClassUsage, ClassOf(err))
	require.Zero(t, ft.writes.Load())
}

func TestDoNarrowsResponse(t *testing.T) {
	testlog.Start(t)
	c, ft := testClient(t, lifecycleReply(t))
	ctx := context.Background()

	res, err := Do[*protocol.PingResponse](ctx, c, &protocol.PingRequest{})
	require.NoError(t, err)
	require.Equal(t, "5.0.14", res.Data.GameVersion)
	require.Equal(t, protocol.StatusLaunched, res.Status)

	_, err = Do[*protocol.QuitResponse](ctx, c, &protocol.PingRequest{})
	var bad *BadResponseError
	require.ErrorAs(t, err, &bad)
	require.Equal(t, int32(1), ft.writes.Load(), "mismatched narrowing must not reach the wire")

	generic, err := Do[protocol.ResponsePayload](ctx, c, &protocol.GameInfoRequest{})
	require.NoError(t, err)
	require.Equal(t, protocol.KindGameInfo, generic.Data.Kind())
}

func TestGoMatchesBlockingSemantics(t *testing.T) {
	testlog.Start(t)
	c, _ := testClient(t, lifecycleReply(t))
	ctx := context.Background()

	done := make(chan *Call, 2)
	c.Go(ctx, protocol.Request{ID: 1, Payload: &protocol.PingRequest{}}, done)
	first := <-done
	require.NoError(t, first.Error)
	require.Equal(t, uint32(1), first.Request.ID)

	c.Go(ctx, protocol.Request{Payload: &protocol.CreateGameRequest{}}, done)
	second := <-done
	require.NoError(t, second.Error)
	require.Equal(t, protocol.StatusInitGame, c.Status())

	require.Panics(t, func() { c.Go(ctx, protocol.Request{Payload: &protocol.PingRequest{}}, make(chan *Call)) })
}

func TestConcurrentCallersAreSerialized(t *testing.T) {
	testlog.Start(t)
	c, ft := testClient(t, lifecycleReply(t))

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := c.Send(context.Background(), &protocol.PingRequest{})
			return err
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int32(16), ft.writes.Load())
	require.False(t, ft.overlap.Load(), "two requests were in flight at once")
}

func TestReadTimeoutIsTransportError(t *testing.T) {
	testlog.Start(t)
	ft := newFakeTransport(func(protocol.Request) []byte { return nil })
	cfg := DefaultConfig()
	cfg.ReadTimeout = 20 * time.Millisecond
	c := NewClient(ft, cfg)
	defer c.Close()

	_, err := c.Send(context.Background(), &protocol.PingRequest{})
	require.ErrorIs(t, err, ErrTransport)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}
