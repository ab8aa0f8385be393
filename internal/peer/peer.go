// Package peer is an in-process stand-in for the game: it walks the
// sc2api lifecycle without simulating anything.
package peer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/sc2ctl/internal/logging"
	"github.com/danmuck/sc2ctl/internal/protocol"
	"github.com/danmuck/sc2ctl/internal/protocol/frame"
	"github.com/danmuck/sc2ctl/internal/protocol/session"
	"github.com/danmuck/sc2ctl/internal/protocol/tlv"
)

// stepLoopField is simulation_loop in ResponseStep.
const stepLoopField = 2

type Config struct {
	// GameLoops ends the game once reached; 0 never ends it.
	GameLoops   uint32
	GameVersion string
	DataVersion string
	BaseBuild   uint32
	Maps        []string
	Logger      *zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		GameLoops:   100,
		GameVersion: "5.0.14.93333",
		DataVersion: "1AA5AE0C8E3F73A2B6AB8AAA7DB5A839",
		BaseBuild:   93333,
		Maps:        []string{"Ladder2019Season3/AcropolisLE.SC2Map"},
	}
}

// Peer holds one game's state. Sessions share it.
type Peer struct {
	cfg Config
	log zerolog.Logger

	mu     sync.Mutex
	status protocol.Status
	loop   uint32
}

func New(cfg Config) *Peer {
	l := logging.Component("peer")
	if cfg.Logger != nil {
		l = *cfg.Logger
	}
	return &Peer{cfg: cfg, log: l, status: protocol.StatusLaunched}
}

func (p *Peer) Status() protocol.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// GameLoop is the simulation loop of the current game.
func (p *Peer) GameLoop() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loop
}

// Handle answers one request and applies its transition. Requests the
// current status does not allow leave the status unchanged.
func (p *Peer) Handle(req protocol.Request) protocol.Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	resp := protocol.Response{ID: req.ID}
	kind := req.Kind()
	if !kind.Valid() {
		resp.Status = p.status
		resp.Warnings = []string{"request has no payload"}
		return resp
	}
	payload, err := protocol.NewResponsePayload(kind)
	if err != nil {
		resp.Status = p.status
		resp.Warnings = []string{err.Error()}
		return resp
	}
	if reason := p.apply(req, payload); reason != "" {
		resp.Status = p.status
		resp.Warnings = []string{reason}
		p.log.Debug().Msgf("peer.Peer.Handle rejected kind=%s status=%s", kind, p.status)
		return resp
	}
	resp.Payload = payload
	resp.Status = p.status
	return resp
}

// apply mutates state and fills payload. A non-empty result rejects the
// request with an empty response.
func (p *Peer) apply(req protocol.Request, payload protocol.ResponsePayload) string {
	switch out := payload.(type) {
	case *protocol.PingResponse:
		out.GameVersion = p.cfg.GameVersion
		out.DataVersion = p.cfg.DataVersion
		out.DataBuild = p.cfg.BaseBuild
		out.BaseBuild = p.cfg.BaseBuild
	case *protocol.AvailableMapsResponse:
		out.LocalMapPaths = append([]string(nil), p.cfg.Maps...)
	case *protocol.ReplayInfoResponse:
		out.GameVersion = p.cfg.GameVersion
		if len(p.cfg.Maps) > 0 {
			out.LocalMapPath = p.cfg.Maps[0]
			out.MapName = strings.TrimSuffix(path.Base(out.LocalMapPath), ".SC2Map")
		}
	case *protocol.CreateGameResponse:
		if p.status != protocol.StatusLaunched {
			return p.notAllowed(req)
		}
		p.status = protocol.StatusInitGame
	case *protocol.JoinGameResponse:
		if p.status != protocol.StatusInitGame {
			out.Error = protocol.JoinGameLaunchError
			out.ErrorDetails = p.notAllowed(req)
			return ""
		}
		p.status = protocol.StatusInGame
		p.loop = 0
		out.PlayerID = 1
	case *protocol.RestartGameResponse:
		if p.status != protocol.StatusInGame && p.status != protocol.StatusEnded {
			out.Error = protocol.RestartGameLaunchError
			out.ErrorDetails = p.notAllowed(req)
			return ""
		}
		p.status = protocol.StatusInGame
		p.loop = 0
	case *protocol.StartReplayResponse:
		if p.status != protocol.StatusLaunched {
			out.Error = protocol.StartReplayLaunchError
			out.ErrorDetails = p.notAllowed(req)
			return ""
		}
		p.status = protocol.StatusInReplay
		p.loop = 0
	case *protocol.MapCommandResponse:
		if p.status != protocol.StatusInGame {
			out.Error = protocol.MapCommandNoTriggerError
			out.ErrorDetails = p.notAllowed(req)
		}
	case *protocol.LeaveGameResponse:
		if !p.inGame() {
			return p.notAllowed(req)
		}
		p.status = protocol.StatusLaunched
	case *protocol.StepResponse:
		if !p.inGame() {
			return p.notAllowed(req)
		}
		p.step(req)
		out.Body = tlv.AppendUint32(nil, stepLoopField, p.loop)
	case *protocol.QuitResponse:
		p.status = protocol.StatusQuit
	case *protocol.DebugResponse, *protocol.SaveMapResponse, *protocol.DataResponse:
	default:
		// game state requests
		if !p.inGame() {
			return p.notAllowed(req)
		}
	}
	return ""
}

func (p *Peer) inGame() bool {
	switch p.status {
	case protocol.StatusInGame, protocol.StatusInReplay, protocol.StatusEnded:
		return true
	}
	return false
}

func (p *Peer) step(req protocol.Request) {
	if p.status == protocol.StatusEnded {
		return
	}
	n := uint32(1)
	if step, ok := req.Payload.(*protocol.StepRequest); ok && step.Count > 0 {
		n = step.Count
	}
	p.loop += n
	if p.cfg.GameLoops > 0 && p.loop >= p.cfg.GameLoops {
		p.loop = p.cfg.GameLoops
		p.status = protocol.StatusEnded
	}
}

func (p *Peer) notAllowed(req protocol.Request) string {
	return fmt.Sprintf("%s is not valid in status %s", req.Kind(), p.status)
}

// ServeSession answers requests on ss until the client leaves, the
// peer quits or ctx is done. Undecodable requests get an empty
// response carrying the decode error.
func (p *Peer) ServeSession(ctx context.Context, ss *session.ServerSession) error {
	quit := false
	defer func() {
		// a quitting game drops the socket, it does not wait for the client
		if quit {
			_ = ss.CloseNow()
			return
		}
		_ = ss.Close()
	}()
	log := p.log.With().Str("remote", ss.RemoteAddr()).Logger()
	log.Info().Msgf("peer.Peer.ServeSession open status=%s", p.Status())
	for {
		req, err := ss.Read(ctx)
		switch {
		case err == nil:
		case session.ClassOf(err) == session.ClassDecode:
			log.Warn().Err(err).Msg("peer.Peer.ServeSession undecodable request")
			if err := ss.Send(ctx, protocol.Response{Status: p.Status(), Warnings: []string{err.Error()}}); err != nil {
				return err
			}
			continue
		case errors.Is(err, frame.ErrClosed), ctx.Err() != nil:
			log.Info().Msg("peer.Peer.ServeSession closed")
			return nil
		default:
			return err
		}

		resp := p.Handle(req)
		if err := ss.Send(ctx, resp); err != nil {
			return err
		}
		if resp.Status == protocol.StatusQuit {
			quit = true
			log.Info().Msg("peer.Peer.ServeSession quit")
			return nil
		}
	}
}

// Serve accepts sessions until a Quit request, srv.Close or ctx is done.
func (p *Peer) Serve(ctx context.Context, srv *session.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for {
		ss, err := srv.Accept(gctx)
		if err != nil {
			if errors.Is(err, session.ErrServerClosed) || gctx.Err() != nil {
				break
			}
			cancel()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			err := p.ServeSession(gctx, ss)
			if p.Status() == protocol.StatusQuit {
				cancel()
			}
			return err
		})
	}
	cancel()
	return g.Wait()
}
