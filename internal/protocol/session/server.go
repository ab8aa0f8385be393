package session

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/danmuck/sc2ctl/internal/observability"
	"github.com/danmuck/sc2ctl/internal/protocol"
	"github.com/danmuck/sc2ctl/internal/protocol/frame"
)

var ErrServerClosed = errors.New("session: server closed")

// Server is the peer side of the API: it upgrades GET /sc2api and
// answers everything else with 403 Forbidden.
type Server struct {
	ln  net.Listener
	srv *http.Server
	cfg Config
	log zerolog.Logger

	sessions  chan *ServerSession
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Listen binds addr and starts serving.
func Listen(addr string, cfg Config) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewServer(ln, cfg), nil
}

// NewServer serves on ln until Close.
func NewServer(ln net.Listener, cfg Config) *Server {
	cfg = cfg.WithDefaults()
	s := &Server{
		ln:       ln,
		cfg:      cfg,
		log:      cfg.logger(),
		sessions: make(chan *ServerSession, 8),
		done:     make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(observability.RequestLogger(s.log))
	r.Use(observability.RequestMetrics("peer"))
	r.Get(APIPath, s.upgrade)
	r.NotFound(forbidden)
	r.MethodNotAllowed(forbidden)

	s.srv = &http.Server{Handler: r, ReadHeaderTimeout: cfg.HandshakeTimeout}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msgf("session.Server.serve addr=%s", ln.Addr())
		}
	}()
	s.log.Info().Msgf("session.Server.listen addr=%s path=%s", ln.Addr(), APIPath)
	return s
}

func forbidden(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warn().Err(err).Msgf("session.Server.upgrade remote=%s", r.RemoteAddr)
		return
	}
	sess := &ServerSession{
		conn:   frame.New(ws, s.cfg.Limits),
		remote: r.RemoteAddr,
		cfg:    s.cfg,
		log:    s.log.With().Str("remote", r.RemoteAddr).Logger(),
	}
	select {
	case s.sessions <- sess:
		s.log.Debug().Msgf("session.Server.upgrade accepted remote=%s", r.RemoteAddr)
	case <-s.done:
		_ = sess.Close()
	}
}

func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Accept blocks for the next upgraded connection.
func (s *Server) Accept(ctx context.Context) (*ServerSession, error) {
	select {
	case sess := <-s.sessions:
		return sess, nil
	case <-s.done:
		return nil, ErrServerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops listening. Sessions already accepted stay open.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.srv.Close()
		for {
			select {
			case sess := <-s.sessions:
				_ = sess.Close()
			default:
				return
			}
		}
	})
	return s.closeErr
}

// ServerSession is one accepted connection, seen from the peer.
type ServerSession struct {
	conn   *frame.Conn
	remote string
	cfg    Config
	log    zerolog.Logger
}

func (ss *ServerSession) RemoteAddr() string { return ss.remote }

// Read blocks for exactly one request.
func (ss *ServerSession) Read(ctx context.Context) (protocol.Request, error) {
	b, err := ss.conn.ReadFrame(ctx)
	if err != nil {
		if errors.Is(err, frame.ErrTextFrame) {
			return protocol.Request{}, decodeErr(err)
		}
		return protocol.Request{}, transportErr(err)
	}
	req, err := protocol.DecodeRequest(b)
	if err != nil {
		return protocol.Request{}, decodeErr(err)
	}
	ss.log.Debug().Msgf("session.ServerSession.Read kind=%s id=%d", req.Kind(), req.ID)
	return req, nil
}

// Send writes resp immediately.
func (ss *ServerSession) Send(ctx context.Context, resp protocol.Response) error {
	b, err := protocol.EncodeResponse(resp)
	if err != nil {
		return err
	}
	if ss.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ss.cfg.WriteTimeout)
		defer cancel()
	}
	if err := ss.conn.WriteFrame(ctx, b); err != nil {
		return transportErr(err)
	}
	return nil
}

// Write queues resp until Flush.
func (ss *ServerSession) Write(resp protocol.Response) error {
	b, err := protocol.EncodeResponse(resp)
	if err != nil {
		return err
	}
	if err := ss.conn.Feed(b); err != nil {
		return transportErr(err)
	}
	return nil
}

func (ss *ServerSession) Flush(ctx context.Context) error {
	if err := ss.conn.Flush(ctx); err != nil {
		return transportErr(err)
	}
	return nil
}

func (ss *ServerSession) Close() error {
	return ss.conn.Close()
}

// CloseNow drops the connection without the close handshake, for a peer
// that is going away.
func (ss *ServerSession) CloseNow() error {
	return ss.conn.CloseNow()
}
