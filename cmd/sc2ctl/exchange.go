package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danmuck/sc2ctl/internal/protocol"
	"github.com/danmuck/sc2ctl/internal/protocol/session"
)

type pingView struct {
	Addr        string   `json:"addr" yaml:"addr"`
	Status      string   `json:"status" yaml:"status"`
	GameVersion string   `json:"game_version" yaml:"game_version"`
	DataVersion string   `json:"data_version" yaml:"data_version"`
	DataBuild   uint32   `json:"data_build" yaml:"data_build"`
	BaseBuild   uint32   `json:"base_build" yaml:"base_build"`
	Warnings    []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func newPingCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Ping the peer and print its versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			client, err := session.Connect(ctx, c.cfg.Addr, c.cfg.Session)
			if err != nil {
				return err
			}
			defer client.Close()

			res, err := session.Do[*protocol.PingResponse](ctx, client, &protocol.PingRequest{})
			if err != nil {
				return err
			}
			return c.print(cmd, pingView{
				Addr:        c.cfg.Addr,
				Status:      res.Status.String(),
				GameVersion: res.Data.GameVersion,
				DataVersion: res.Data.DataVersion,
				DataBuild:   res.Data.DataBuild,
				BaseBuild:   res.Data.BaseBuild,
				Warnings:    res.Warnings,
			})
		},
	}
}

type statusView struct {
	Addr   string `json:"addr" yaml:"addr"`
	Status string `json:"status" yaml:"status"`
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the lifecycle status the peer reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			cfg := c.cfg.Session
			cfg.ProbeStatus = true
			client, err := session.Connect(ctx, c.cfg.Addr, cfg)
			if err != nil {
				return err
			}
			defer client.Close()
			return c.print(cmd, statusView{Addr: c.cfg.Addr, Status: client.Status().String()})
		},
	}
}

type exchangeView struct {
	Kind     string                   `json:"kind" yaml:"kind"`
	Status   string                   `json:"status" yaml:"status"`
	Class    string                   `json:"class" yaml:"class"`
	Error    string                   `json:"error,omitempty" yaml:"error,omitempty"`
	Warnings []string                 `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Payload  protocol.ResponsePayload `json:"payload,omitempty" yaml:"payload,omitempty"`
}

func newSendCmd(c *cli) *cobra.Command {
	var (
		count     uint32
		body      string
		keepGoing bool
	)
	cmd := &cobra.Command{
		Use:   "send <kind>...",
		Short: "Send requests in order over one session",
		Long: `Send one request per kind (e.g. create_game join_game step quit) over a
single session and print every exchange. Request bodies are empty unless
--body supplies hex-encoded protobuf fields.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payloads := make([]protocol.RequestPayload, 0, len(args))
			for _, arg := range args {
				p, err := buildRequest(arg, count, body)
				if err != nil {
					return err
				}
				payloads = append(payloads, p)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			client, err := session.Connect(ctx, c.cfg.Addr, c.cfg.Session)
			if err != nil {
				return err
			}
			defer client.Close()

			views := make([]exchangeView, 0, len(payloads))
			var firstErr error
			for _, p := range payloads {
				res, err := client.Send(ctx, p)
				view := exchangeView{
					Kind:     p.Kind().String(),
					Status:   client.Status().String(),
					Class:    session.ClassOf(err).String(),
					Warnings: res.Warnings,
					Payload:  res.Data,
				}
				if err != nil {
					view.Error = err.Error()
					if firstErr == nil {
						firstErr = err
					}
				}
				views = append(views, view)
				if err != nil && !keepGoing {
					break
				}
			}
			if err := c.print(cmd, views); err != nil {
				return err
			}
			return firstErr
		},
	}
	cmd.Flags().Uint32Var(&count, "count", 1, "game loops per step request")
	cmd.Flags().StringVar(&body, "body", "", "hex-encoded body appended to every request")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "continue after a failed exchange")
	return cmd
}

func buildRequest(rawKind string, count uint32, body string) (protocol.RequestPayload, error) {
	kind, err := protocol.ParseKind(rawKind)
	if err != nil {
		return nil, err
	}
	p, err := protocol.NewRequestPayload(kind)
	if err != nil {
		return nil, err
	}
	if body != "" {
		b, err := hex.DecodeString(strings.TrimPrefix(body, "0x"))
		if err != nil {
			return nil, fmt.Errorf("--body: %w", err)
		}
		setBody(p, b)
	}
	if step, ok := p.(*protocol.StepRequest); ok {
		step.Count = count
	}
	return p, nil
}

// bodied matches the promoted Opaque of every request variant.
type bodied interface {
	SetBody([]byte)
}

func setBody(p protocol.RequestPayload, b []byte) {
	if v, ok := p.(bodied); ok {
		v.SetBody(b)
	}
}
