// Package launcher builds the command line of a local StarCraft II
// process and owns the resulting process handle.
package launcher

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

var (
	ErrNoGameDir            = errors.New("launcher: game directory not found")
	ErrNoVersions           = errors.New("launcher: no game versions found")
	ErrRenderingLibConflict = errors.New("launcher: egl and osmesa paths are exclusive")
	ErrInvalidDisplayMode   = errors.New("launcher: invalid display mode")
	ErrInvalidOnClose       = errors.New("launcher: invalid on_close policy")
)

// EnvGameDir overrides game directory discovery.
const EnvGameDir = "SC2PATH"

type DisplayMode string

const (
	DisplayDefault    DisplayMode = ""
	DisplayWindowed   DisplayMode = "windowed"
	DisplayBorderless DisplayMode = "borderless"
	DisplayFullscreen DisplayMode = "fullscreen"
)

// arg is the numeric value the game expects after -displayMode.
func (m DisplayMode) arg() (string, error) {
	switch m {
	case DisplayWindowed:
		return "0", nil
	case DisplayBorderless:
		return "1", nil
	case DisplayFullscreen:
		return "2", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDisplayMode, string(m))
	}
}

// OnClose decides what Instance.Close does with the process.
type OnClose string

const (
	OnCloseKeep OnClose = "keep"
	OnCloseWait OnClose = "wait"
	OnCloseKill OnClose = "kill"
)

func ParseOnClose(raw string) (OnClose, error) {
	switch v := OnClose(strings.ToLower(strings.TrimSpace(raw))); v {
	case "":
		return OnCloseKeep, nil
	case OnCloseKeep, OnCloseWait, OnCloseKill:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOnClose, raw)
	}
}

// Launcher describes how to start the game. Empty fields fall back to
// discovery or the game's own defaults.
type Launcher struct {
	// Addr is the host:port the game API listens on.
	Addr       string
	GameDir    string
	Version    string // e.g. Base75689; latest when empty
	Executable string
	WorkDir    string
	DataDir    string
	TempDir    string
	// DataVersion is the data hash matching Version, for replays.
	DataVersion string
	Verbose     bool
	DisplayMode DisplayMode
	EGLPath     string
	OSMesaPath  string
	Extra       []string
	OnClose     OnClose

	goos string
}

func Default() Launcher {
	return Launcher{Addr: "[::1]:5000", OnClose: OnCloseKeep}
}

func (l Launcher) platform() string {
	if l.goos != "" {
		return l.goos
	}
	return runtime.GOOS
}

// Command builds the process command without starting it.
func (l Launcher) Command() (*exec.Cmd, error) {
	host, port, err := net.SplitHostPort(l.Addr)
	if err != nil {
		return nil, fmt.Errorf("launcher: listen address %q: %w", l.Addr, err)
	}
	if l.EGLPath != "" && l.OSMesaPath != "" {
		return nil, ErrRenderingLibConflict
	}

	gameDir := l.GameDir
	if gameDir == "" {
		if gameDir, err = DefaultGameDir(); err != nil {
			return nil, err
		}
	}
	version := l.Version
	if version == "" {
		if version, err = LatestVersion(gameDir); err != nil {
			return nil, err
		}
	}
	exe := l.Executable
	if exe == "" {
		exe = defaultExecutable(l.platform())
	}

	args := []string{"-listen", host, "-port", port}
	if l.DataVersion != "" {
		args = append(args, "-dataVersion", l.DataVersion)
	}
	if l.Verbose {
		args = append(args, "-verbose")
	}
	if l.DisplayMode != DisplayDefault {
		mode, err := l.DisplayMode.arg()
		if err != nil {
			return nil, err
		}
		args = append(args, "-displayMode", mode)
	}
	switch {
	case l.EGLPath != "":
		args = append(args, "-eglpath", l.EGLPath)
	case l.OSMesaPath != "":
		args = append(args, "-osmesapath", l.OSMesaPath)
	}
	if l.DataDir != "" {
		args = append(args, "-dataDir", l.DataDir)
	}
	if l.TempDir != "" {
		args = append(args, "-tempDir", l.TempDir)
	}
	args = append(args, l.Extra...)

	cmd := exec.Command(filepath.Join(gameDir, "Versions", version, exe), args...)
	cmd.Dir = l.WorkDir
	if cmd.Dir == "" {
		cmd.Dir = gameDir
		if l.platform() == "windows" {
			cmd.Dir = filepath.Join(gameDir, "Support64")
		}
	}
	return cmd, nil
}

func defaultExecutable(goos string) string {
	if goos == "windows" {
		return "SC2_x64.exe"
	}
	return "SC2_x64"
}

// LatestVersion returns the Versions/BaseNNNNN entry with the highest
// build number.
func LatestVersion(gameDir string) (string, error) {
	entries, err := os.ReadDir(filepath.Join(gameDir, "Versions"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoVersions, err)
	}
	best, bestBuild := "", -1
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "Base") {
			continue
		}
		build, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "Base"))
		if err != nil {
			continue
		}
		if build > bestBuild {
			best, bestBuild = e.Name(), build
		}
	}
	if best == "" {
		return "", ErrNoVersions
	}
	return best, nil
}

// DefaultGameDir looks at SC2PATH, then the platform install location.
func DefaultGameDir() (string, error) {
	var candidates []string
	if env := strings.TrimSpace(os.Getenv(EnvGameDir)); env != "" {
		candidates = append(candidates, env)
	}
	switch runtime.GOOS {
	case "windows":
		if dir, ok := executeInfoDir(); ok {
			candidates = append(candidates, dir)
		}
		candidates = append(candidates, `C:\Program Files (x86)\StarCraft II`)
	case "darwin":
		candidates = append(candidates, "/Applications/StarCraft II")
	default:
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, "StarCraftII"))
		}
	}
	for _, dir := range candidates {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir, nil
		}
	}
	return "", ErrNoGameDir
}

// executeInfoDir reads the executable path the Battle.net launcher
// records and strips Versions/<version>/<exe>.
func executeInfoDir() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	data, err := os.ReadFile(filepath.Join(home, "Documents", "StarCraft II", "ExecuteInfo.txt"))
	if err != nil {
		return "", false
	}
	line, _, _ := strings.Cut(string(data), "\n")
	_, exe, ok := strings.Cut(line, "=")
	if !ok {
		return "", false
	}
	exe = strings.TrimSpace(exe)
	return filepath.Dir(filepath.Dir(filepath.Dir(exe))), exe != ""
}
