package launcher

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/sc2ctl/internal/protocol/session"
)

// Instance is a started game process.
type Instance struct {
	Addr    string
	OnClose OnClose

	cmd      *exec.Cmd
	waitOnce sync.Once
	waitErr  error
}

// Spawn starts the game. The process outlives the caller unless Close
// runs with the wait or kill policy.
func (l Launcher) Spawn() (*Instance, error) {
	cmd, err := l.Command()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	policy := l.OnClose
	if policy == "" {
		policy = OnCloseKeep
	}
	log.Info().Msgf("launcher.Launcher.Spawn pid=%d addr=%s path=%q on_close=%s", cmd.Process.Pid, l.Addr, cmd.Path, policy)
	return &Instance{Addr: l.Addr, OnClose: policy, cmd: cmd}, nil
}

func (i *Instance) Pid() int { return i.cmd.Process.Pid }

// URL is the websocket endpoint of the game API.
func (i *Instance) URL() string {
	u, err := session.URL(i.Addr)
	if err != nil {
		return ""
	}
	return u
}

// Connect dials the instance, retrying while the game starts up.
func (i *Instance) Connect(ctx context.Context, cfg session.Config) (*session.Client, error) {
	return session.Connect(ctx, i.Addr, cfg)
}

// Wait blocks until the process exits. It is safe to call repeatedly.
func (i *Instance) Wait() error {
	i.waitOnce.Do(func() {
		i.waitErr = i.cmd.Wait()
	})
	return i.waitErr
}

// Kill signals the process; an already exited process is not an error.
func (i *Instance) Kill() error {
	err := i.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Close applies the OnClose policy.
func (i *Instance) Close() error {
	switch i.OnClose {
	case OnCloseWait:
		return i.Wait()
	case OnCloseKill:
		if err := i.Kill(); err != nil {
			return err
		}
		// the exit status of a killed process is expected
		_ = i.Wait()
		return nil
	default:
		return i.cmd.Process.Release()
	}
}
