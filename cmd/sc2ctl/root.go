package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danmuck/sc2ctl/internal/config"
	"github.com/danmuck/sc2ctl/internal/logging"
	"github.com/danmuck/sc2ctl/internal/output"
)

// cli is the state shared by subcommands after PersistentPreRunE.
type cli struct {
	cfgFile  string
	addr     string
	format   string
	logLevel string

	cfg       config.Config
	formatter output.Formatter
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "sc2ctl",
		Short:         "Talk to a StarCraft II API endpoint",
		Long:          "sc2ctl drives the StarCraft II websocket API: probe and script a running game, launch one, or serve a mock peer.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "TOML config file")
	flags.StringVar(&c.addr, "addr", "", "peer address, host:port or ws:// URL")
	flags.StringVarP(&c.format, "output", "o", "table", "output format: table, json, yaml")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (overrides config and "+logging.EnvLogLevel+")")

	root.AddCommand(
		newPingCmd(c),
		newSendCmd(c),
		newStatusCmd(c),
		newMockCmd(c),
		newLaunchCmd(c),
		newConfigCmd(c),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	if c.addr != "" {
		cfg.Addr = c.addr
	}
	logCfg := cfg.Log
	logging.ApplyEnvOverrides(&logCfg, os.Getenv)
	logging.Install(logCfg)
	if c.logLevel != "" {
		if err := logging.SetLevel(c.logLevel); err != nil {
			return err
		}
	}
	format, err := output.ParseFormat(c.format)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.formatter = output.NewFormatter(format)
	return nil
}

func (c *cli) print(cmd *cobra.Command, data any) error {
	return output.Write(cmd.OutOrStdout(), c.formatter, data)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
