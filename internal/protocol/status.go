package protocol

import (
	"fmt"
	"strings"
)

// Status is the lifecycle phase the peer reports in every response.
type Status int32

const (
	StatusUnset    Status = 0
	StatusLaunched Status = 1
	StatusInitGame Status = 2
	StatusInGame   Status = 3
	StatusInReplay Status = 4
	StatusEnded    Status = 5
	StatusQuit     Status = 6
	StatusUnknown  Status = 99
)

func (s Status) String() string {
	switch s {
	case StatusUnset:
		return "Unset"
	case StatusLaunched:
		return "Launched"
	case StatusInitGame:
		return "InitGame"
	case StatusInGame:
		return "InGame"
	case StatusInReplay:
		return "InReplay"
	case StatusEnded:
		return "Ended"
	case StatusQuit:
		return "Quit"
	case StatusUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// MarshalText lets structured output print the symbolic name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Statuses lists every named status.
func Statuses() []Status {
	return []Status{
		StatusUnset,
		StatusLaunched,
		StatusInitGame,
		StatusInGame,
		StatusInReplay,
		StatusEnded,
		StatusQuit,
		StatusUnknown,
	}
}

func ParseStatus(raw string) (Status, error) {
	norm := strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range Statuses() {
		if strings.ToLower(s.String()) == norm {
			return s, nil
		}
	}
	return StatusUnset, fmt.Errorf("protocol: unknown status %q", raw)
}
