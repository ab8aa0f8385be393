package session

import (
	"strings"

	"github.com/danmuck/sc2ctl/internal/protocol"
)

// embeddedError reads a variant's error sub-field: code, symbolic name
// and detail. A zero code means no error.
type embeddedError func(protocol.ResponsePayload) (int32, string, string)

var embeddedErrors = map[protocol.Kind]embeddedError{
	protocol.KindCreateGame: func(p protocol.ResponsePayload) (int32, string, string) {
		r := p.(*protocol.CreateGameResponse)
		return int32(r.Error), r.Error.String(), r.ErrorDetails
	},
	protocol.KindJoinGame: func(p protocol.ResponsePayload) (int32, string, string) {
		r := p.(*protocol.JoinGameResponse)
		return int32(r.Error), r.Error.String(), r.ErrorDetails
	},
	protocol.KindRestartGame: func(p protocol.ResponsePayload) (int32, string, string) {
		r := p.(*protocol.RestartGameResponse)
		return int32(r.Error), r.Error.String(), r.ErrorDetails
	},
	protocol.KindStartReplay: func(p protocol.ResponsePayload) (int32, string, string) {
		r := p.(*protocol.StartReplayResponse)
		return int32(r.Error), r.Error.String(), r.ErrorDetails
	},
	protocol.KindReplayInfo: func(p protocol.ResponsePayload) (int32, string, string) {
		r := p.(*protocol.ReplayInfoResponse)
		return int32(r.Error), r.Error.String(), r.ErrorDetails
	},
	protocol.KindSaveMap: func(p protocol.ResponsePayload) (int32, string, string) {
		r := p.(*protocol.SaveMapResponse)
		return int32(r.Error), r.Error.String(), ""
	},
	protocol.KindMapCommand: func(p protocol.ResponsePayload) (int32, string, string) {
		r := p.(*protocol.MapCommandResponse)
		return int32(r.Error), r.Error.String(), r.ErrorDetails
	},
}

// CarriesError reports whether responses of kind k have an error sub-field.
func CarriesError(k protocol.Kind) bool {
	_, ok := embeddedErrors[k]
	return ok
}

// Classify turns the in-band failures of resp into an *Sc2Error. A
// response without a payload yields the empty-response error, which
// carries the peer's warnings as detail.
func Classify(resp protocol.Response) error {
	k := resp.Kind()
	if k == protocol.KindNone {
		return &Sc2Error{
			Kind:    protocol.KindNone,
			Message: "empty response",
			Detail:  strings.Join(resp.Warnings, "\n"),
		}
	}
	read, ok := embeddedErrors[k]
	if !ok {
		return nil
	}
	code, name, detail := read(resp.Payload)
	if code == 0 {
		return nil
	}
	return &Sc2Error{Kind: k, Code: code, Message: name, Detail: detail}
}
