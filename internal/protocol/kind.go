package protocol

import (
	"fmt"
	"strings"
)

// Kind identifies which request/response variant a message carries.
// Values equal the oneof field numbers of the sc2api envelope.
type Kind int32

const (
	KindNone          Kind = 0
	KindCreateGame    Kind = 1
	KindJoinGame      Kind = 2
	KindRestartGame   Kind = 3
	KindStartReplay   Kind = 4
	KindLeaveGame     Kind = 5
	KindQuickSave     Kind = 6
	KindQuickLoad     Kind = 7
	KindQuit          Kind = 8
	KindGameInfo      Kind = 9
	KindObservation   Kind = 10
	KindAction        Kind = 11
	KindStep          Kind = 12
	KindData          Kind = 13
	KindQuery         Kind = 14
	KindSaveReplay    Kind = 15
	KindReplayInfo    Kind = 16
	KindAvailableMaps Kind = 17
	KindSaveMap       Kind = 18
	KindPing          Kind = 19
	KindDebug         Kind = 20
	KindObsAction     Kind = 21
	KindMapCommand    Kind = 22
)

var kindNames = [...]string{
	KindNone:          "None",
	KindCreateGame:    "CreateGame",
	KindJoinGame:      "JoinGame",
	KindRestartGame:   "RestartGame",
	KindStartReplay:   "StartReplay",
	KindLeaveGame:     "LeaveGame",
	KindQuickSave:     "QuickSave",
	KindQuickLoad:     "QuickLoad",
	KindQuit:          "Quit",
	KindGameInfo:      "GameInfo",
	KindObservation:   "Observation",
	KindAction:        "Action",
	KindStep:          "Step",
	KindData:          "Data",
	KindQuery:         "Query",
	KindSaveReplay:    "SaveReplay",
	KindReplayInfo:    "ReplayInfo",
	KindAvailableMaps: "AvailableMaps",
	KindSaveMap:       "SaveMap",
	KindPing:          "Ping",
	KindDebug:         "Debug",
	KindObsAction:     "ObsAction",
	KindMapCommand:    "MapCommand",
}

func (k Kind) String() string {
	if k.Valid() || k == KindNone {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int32(k))
}

// Valid reports whether k names a payload variant.
func (k Kind) Valid() bool {
	return k >= KindCreateGame && k <= KindMapCommand
}

// Kinds returns every variant kind in field order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames)-1)
	for k := KindCreateGame; k <= KindMapCommand; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind accepts CamelCase, snake_case and kebab-case names.
func ParseKind(raw string) (Kind, error) {
	norm := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(raw)))
	for k := KindCreateGame; k <= KindMapCommand; k++ {
		if strings.ToLower(kindNames[k]) == norm {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

// KindOf returns the kind of a request payload, KindNone for nil.
func KindOf(p RequestPayload) Kind {
	if p == nil {
		return KindNone
	}
	return p.Kind()
}

// ResponseKindOf returns the kind of a response payload, KindNone for nil.
func ResponseKindOf(p ResponsePayload) Kind {
	if p == nil {
		return KindNone
	}
	return p.Kind()
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
