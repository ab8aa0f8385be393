package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danmuck/sc2ctl/internal/launcher"
	"github.com/danmuck/sc2ctl/internal/protocol"
	"github.com/danmuck/sc2ctl/internal/protocol/session"
)

type launchView struct {
	Pid         int    `json:"pid" yaml:"pid"`
	URL         string `json:"url" yaml:"url"`
	OnClose     string `json:"on_close" yaml:"on_close"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
	GameVersion string `json:"game_version,omitempty" yaml:"game_version,omitempty"`
}

func newLaunchCmd(c *cli) *cobra.Command {
	var (
		listen      string
		gameDir     string
		version     string
		displayMode string
		onClose     string
		wait        bool
		dryRun      bool
	)
	cmd := &cobra.Command{
		Use:   "launch [-- extra game args]",
		Short: "Start a local game with its API listening",
		RunE: func(cmd *cobra.Command, args []string) error {
			l := c.cfg.Launcher
			flags := cmd.Flags()
			if flags.Changed("listen") {
				l.Addr = listen
			}
			if flags.Changed("game-dir") {
				l.GameDir = gameDir
			}
			if flags.Changed("version") {
				l.Version = version
			}
			if flags.Changed("display-mode") {
				l.DisplayMode = launcher.DisplayMode(displayMode)
			}
			if flags.Changed("on-close") {
				policy, err := launcher.ParseOnClose(onClose)
				if err != nil {
					return err
				}
				l.OnClose = policy
			}
			l.Extra = append(l.Extra, args...)

			if dryRun {
				command, err := l.Command()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), command.String())
				return err
			}

			inst, err := l.Spawn()
			if err != nil {
				return err
			}
			defer func() {
				if err := inst.Close(); err != nil {
					log.Warn().Err(err).Msgf("sc2ctl.launch close pid=%d", inst.Pid())
				}
			}()
			view := launchView{Pid: inst.Pid(), URL: inst.URL(), OnClose: string(inst.OnClose)}
			if !wait {
				return c.print(cmd, view)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			client, err := inst.Connect(ctx, c.cfg.Session)
			if err != nil {
				return err
			}
			defer client.Close()
			res, err := session.Do[*protocol.PingResponse](ctx, client, &protocol.PingRequest{})
			if err != nil {
				return err
			}
			view.Status = res.Status.String()
			view.GameVersion = res.Data.GameVersion
			return c.print(cmd, view)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&listen, "listen", "", "API listen address (default from config)")
	flags.StringVar(&gameDir, "game-dir", "", "game install directory ("+launcher.EnvGameDir+" or platform default)")
	flags.StringVar(&version, "version", "", "Versions/ entry to run, latest when empty")
	flags.StringVar(&displayMode, "display-mode", "", "windowed, borderless or fullscreen")
	flags.StringVar(&onClose, "on-close", "", "keep, wait or kill the game when sc2ctl exits")
	flags.BoolVar(&wait, "wait", false, "wait until the API answers a ping")
	flags.BoolVar(&dryRun, "dry-run", false, "print the command line without starting the game")
	return cmd
}
