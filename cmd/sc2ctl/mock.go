package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/sc2ctl/internal/config"
	"github.com/danmuck/sc2ctl/internal/observability"
	"github.com/danmuck/sc2ctl/internal/peer"
	"github.com/danmuck/sc2ctl/internal/protocol/session"
)

func newMockCmd(c *cli) *cobra.Command {
	var (
		listen  string
		metrics string
		loops   uint32
	)
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve a mock game that walks the API lifecycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mc := c.cfg.Mock
			if cmd.Flags().Changed("listen") {
				mc.Addr = listen
			}
			if cmd.Flags().Changed("metrics") {
				mc.MetricsAddr = metrics
			}
			if cmd.Flags().Changed("game-loops") {
				mc.GameLoops = loops
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return runMock(ctx, mc, c.cfg.Session)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	cmd.Flags().StringVar(&metrics, "metrics", "", "serve Prometheus metrics on this address")
	cmd.Flags().Uint32Var(&loops, "game-loops", 0, "game loops until the game ends, 0 never ends")
	return cmd
}

// runMock serves until a client sends Quit or ctx is done.
func runMock(ctx context.Context, mc config.MockConfig, sc session.Config) error {
	observability.RegisterMetrics()
	srv, err := session.Listen(mc.Addr, sc)
	if err != nil {
		return err
	}
	defer srv.Close()

	pcfg := peer.DefaultConfig()
	pcfg.GameLoops = mc.GameLoops
	p := peer.New(pcfg)

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// a quitting peer takes the metrics server down with it
		defer stop()
		return p.Serve(gctx, srv)
	})
	if mc.MetricsAddr != "" {
		r := chi.NewRouter()
		r.Handle("/metrics", observability.Handler())
		ms := &http.Server{Addr: mc.MetricsAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info().Msgf("sc2ctl.mock metrics addr=%s", mc.MetricsAddr)
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return ms.Shutdown(shutdownCtx)
		})
	}
	log.Info().Msgf("sc2ctl.mock serving addr=%s game_loops=%d", srv.Addr(), mc.GameLoops)
	return g.Wait()
}
