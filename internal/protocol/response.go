package protocol

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/danmuck/sc2ctl/internal/protocol/tlv"
)

// Response is the envelope received from the peer. Warnings carries the
// free-form error strings the peer attaches to any response.
type Response struct {
	ID       uint32
	Payload  ResponsePayload
	Status   Status
	Warnings []string
}

// Kind returns the kind of the populated variant, KindNone if empty.
func (r Response) Kind() Kind { return ResponseKindOf(r.Payload) }

// ResponsePayload is the closed set of response variants.
type ResponsePayload interface {
	Kind() Kind
	marshalBody(b []byte) []byte
	unmarshalBody(fields []tlv.Field) error
	isResponse()
}

type (
	LeaveGameResponse   struct{ Opaque }
	QuickSaveResponse   struct{ Opaque }
	QuickLoadResponse   struct{ Opaque }
	QuitResponse        struct{ Opaque }
	GameInfoResponse    struct{ Opaque }
	ObservationResponse struct{ Opaque }
	ActionResponse      struct{ Opaque }
	ObsActionResponse   struct{ Opaque }
	StepResponse        struct{ Opaque }
	DataResponse        struct{ Opaque }
	QueryResponse       struct{ Opaque }
	SaveReplayResponse  struct{ Opaque }
	DebugResponse       struct{ Opaque }
)

type CreateGameResponse struct {
	Opaque
	Error        CreateGameError
	ErrorDetails string
}

type JoinGameResponse struct {
	Opaque
	PlayerID     uint32
	Error        JoinGameError
	ErrorDetails string
}

type RestartGameResponse struct {
	Opaque
	Error         RestartGameError
	ErrorDetails  string
	NeedHardReset bool
}

type StartReplayResponse struct {
	Opaque
	Error        StartReplayError
	ErrorDetails string
}

type ReplayInfoResponse struct {
	Opaque
	MapName      string
	LocalMapPath string
	GameVersion  string
	Error        ReplayInfoError
	ErrorDetails string
}

// SaveMapResponse has no detail string on the wire.
type SaveMapResponse struct {
	Opaque
	Error SaveMapError
}

type MapCommandResponse struct {
	Opaque
	Error        MapCommandError
	ErrorDetails string
}

type PingResponse struct {
	Opaque
	GameVersion string
	DataVersion string
	DataBuild   uint32
	BaseBuild   uint32
}

type AvailableMapsResponse struct {
	Opaque
	LocalMapPaths     []string
	BattlenetMapNames []string
}

func (r *CreateGameResponse) marshalBody(b []byte) []byte {
	b = tlv.AppendInt32(b, 1, int32(r.Error))
	b = tlv.AppendString(b, 2, r.ErrorDetails)
	return append(b, r.Body...)
}

func (r *CreateGameResponse) unmarshalBody(fields []tlv.Field) error {
	return decodeBody(fields, &r.Opaque, bodyFields{
		1: enumInto(func(v int32) { r.Error = CreateGameError(v) }),
		2: stringInto(&r.ErrorDetails),
	})
}

func (r *JoinGameResponse) marshalBody(b []byte) []byte {
	b = tlv.AppendUint32(b, 1, r.PlayerID)
	b = tlv.AppendInt32(b, 2, int32(r.Error))
	b = tlv.AppendString(b, 3, r.ErrorDetails)
	return append(b, r.Body...)
}

func (r *JoinGameResponse) unmarshalBody(fields []tlv.Field) error {
	return decodeBody(fields, &r.Opaque, bodyFields{
		1: uint32Into(&r.PlayerID),
		2: enumInto(func(v int32) { r.Error = JoinGameError(v) }),
		3: stringInto(&r.ErrorDetails),
	})
}

func (r *RestartGameResponse) marshalBody(b []byte) []byte {
	b = tlv.AppendInt32(b, 1, int32(r.Error))
	b = tlv.AppendString(b, 2, r.ErrorDetails)
	b = tlv.AppendBool(b, 3, r.NeedHardReset)
	return append(b, r.Body...)
}

func (r *RestartGameResponse) unmarshalBody(fields []tlv.Field) error {
	return decodeBody(fields, &r.Opaque, bodyFields{
		1: enumInto(func(v int32) { r.Error = RestartGameError(v) }),
		2: stringInto(&r.ErrorDetails),
		3: boolInto(&r.NeedHardReset),
	})
}

func (r *StartReplayResponse) marshalBody(b []byte) []byte {
	b = tlv.AppendInt32(b, 1, int32(r.Error))
	b = tlv.AppendString(b, 2, r.ErrorDetails)
	return append(b, r.Body...)
}

func (r *StartReplayResponse) unmarshalBody(fields []tlv.Field) error {
	return decodeBody(fields, &r.Opaque, bodyFields{
		1: enumInto(func(v int32) { r.Error = StartReplayError(v) }),
		2: stringInto(&r.ErrorDetails),
	})
}

func (r *ReplayInfoResponse) marshalBody(b []byte) []byte {
	b = tlv.AppendString(b, 1, r.MapName)
	b = tlv.AppendString(b, 2, r.LocalMapPath)
	b = tlv.AppendString(b, 6, r.GameVersion)
	b = tlv.AppendInt32(b, 9, int32(r.Error))
	b = tlv.AppendString(b, 10, r.ErrorDetails)
	return append(b, r.Body...)
}

func (r *ReplayInfoResponse) unmarshalBody(fields []tlv.Field) error {
	return decodeBody(fields, &r.Opaque, bodyFields{
		1:  stringInto(&r.MapName),
		2:  stringInto(&r.LocalMapPath),
		6:  stringInto(&r.GameVersion),
		9:  enumInto(func(v int32) { r.Error = ReplayInfoError(v) }),
		10: stringInto(&r.ErrorDetails),
	})
}

func (r *SaveMapResponse) marshalBody(b []byte) []byte {
	b = tlv.AppendInt32(b, 1, int32(r.Error))
	return append(b, r.Body...)
}

func (r *SaveMapResponse) unmarshalBody(fields []tlv.Field) error {
	return decodeBody(fields, &r.Opaque, bodyFields{
		1: enumInto(func(v int32) { r.Error = SaveMapError(v) }),
	})
}

func (r *MapCommandResponse) marshalBody(b []byte) []byte {
	b = tlv.AppendInt32(b, 1, int32(r.Error))
	b = tlv.AppendString(b, 2, r.ErrorDetails)
	return append(b, r.Body...)
}

func (r *MapCommandResponse) unmarshalBody(fields []tlv.Field) error {
	return decodeBody(fields, &r.Opaque, bodyFields{
		1: enumInto(func(v int32) { r.Error = MapCommandError(v) }),
		2: stringInto(&r.ErrorDetails),
	})
}

func (r *PingResponse) marshalBody(b []byte) []byte {
	b = tlv.AppendString(b, 1, r.GameVersion)
	b = tlv.AppendString(b, 2, r.DataVersion)
	b = tlv.AppendUint32(b, 3, r.DataBuild)
	b = tlv.AppendUint32(b, 4, r.BaseBuild)
	return append(b, r.Body...)
}

func (r *PingResponse) unmarshalBody(fields []tlv.Field) error {
	return decodeBody(fields, &r.Opaque, bodyFields{
		1: stringInto(&r.GameVersion),
		2: stringInto(&r.DataVersion),
		3: uint32Into(&r.DataBuild),
		4: uint32Into(&r.BaseBuild),
	})
}

func (r *AvailableMapsResponse) marshalBody(b []byte) []byte {
	b = tlv.AppendRepeatedString(b, 1, r.LocalMapPaths)
	b = tlv.AppendRepeatedString(b, 2, r.BattlenetMapNames)
	return append(b, r.Body...)
}

func (r *AvailableMapsResponse) unmarshalBody(fields []tlv.Field) error {
	return decodeBody(fields, &r.Opaque, bodyFields{
		1: appendStringInto(&r.LocalMapPaths),
		2: appendStringInto(&r.BattlenetMapNames),
	})
}

// bodyFields maps modelled field numbers to setters; everything else
// lands in Opaque.Body.
type bodyFields map[protowire.Number]func(tlv.Field) error

func decodeBody(fields []tlv.Field, o *Opaque, known bodyFields) error {
	var rest []tlv.Field
	for _, f := range fields {
		set, ok := known[f.Num]
		if !ok {
			rest = append(rest, f)
			continue
		}
		if err := set(f); err != nil {
			return err
		}
	}
	o.Body = rawBody(rest)
	return nil
}

func stringInto(dst *string) func(tlv.Field) error {
	return func(f tlv.Field) error {
		v, err := f.String()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func appendStringInto(dst *[]string) func(tlv.Field) error {
	return func(f tlv.Field) error {
		v, err := f.String()
		if err != nil {
			return err
		}
		*dst = append(*dst, v)
		return nil
	}
}

func uint32Into(dst *uint32) func(tlv.Field) error {
	return func(f tlv.Field) error {
		v, err := f.Uint32()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func boolInto(dst *bool) func(tlv.Field) error {
	return func(f tlv.Field) error {
		v, err := f.Bool()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func enumInto(set func(int32)) func(tlv.Field) error {
	return func(f tlv.Field) error {
		v, err := f.Int32()
		if err != nil {
			return err
		}
		set(v)
		return nil
	}
}

func (*CreateGameResponse) Kind() Kind    { return KindCreateGame }
func (*JoinGameResponse) Kind() Kind      { return KindJoinGame }
func (*RestartGameResponse) Kind() Kind   { return KindRestartGame }
func (*StartReplayResponse) Kind() Kind   { return KindStartReplay }
func (*LeaveGameResponse) Kind() Kind     { return KindLeaveGame }
func (*QuickSaveResponse) Kind() Kind     { return KindQuickSave }
func (*QuickLoadResponse) Kind() Kind     { return KindQuickLoad }
func (*QuitResponse) Kind() Kind          { return KindQuit }
func (*GameInfoResponse) Kind() Kind      { return KindGameInfo }
func (*ObservationResponse) Kind() Kind   { return KindObservation }
func (*ActionResponse) Kind() Kind        { return KindAction }
func (*ObsActionResponse) Kind() Kind     { return KindObsAction }
func (*StepResponse) Kind() Kind          { return KindStep }
func (*DataResponse) Kind() Kind          { return KindData }
func (*QueryResponse) Kind() Kind         { return KindQuery }
func (*SaveReplayResponse) Kind() Kind    { return KindSaveReplay }
func (*ReplayInfoResponse) Kind() Kind    { return KindReplayInfo }
func (*AvailableMapsResponse) Kind() Kind { return KindAvailableMaps }
func (*SaveMapResponse) Kind() Kind       { return KindSaveMap }
func (*MapCommandResponse) Kind() Kind    { return KindMapCommand }
func (*PingResponse) Kind() Kind          { return KindPing }
func (*DebugResponse) Kind() Kind         { return KindDebug }

func (*CreateGameResponse) isResponse()    {}
func (*JoinGameResponse) isResponse()      {}
func (*RestartGameResponse) isResponse()   {}
func (*StartReplayResponse) isResponse()   {}
func (*LeaveGameResponse) isResponse()     {}
func (*QuickSaveResponse) isResponse()     {}
func (*QuickLoadResponse) isResponse()     {}
func (*QuitResponse) isResponse()          {}
func (*GameInfoResponse) isResponse()      {}
func (*ObservationResponse) isResponse()   {}
func (*ActionResponse) isResponse()        {}
func (*ObsActionResponse) isResponse()     {}
func (*StepResponse) isResponse()          {}
func (*DataResponse) isResponse()          {}
func (*QueryResponse) isResponse()         {}
func (*SaveReplayResponse) isResponse()    {}
func (*ReplayInfoResponse) isResponse()    {}
func (*AvailableMapsResponse) isResponse() {}
func (*SaveMapResponse) isResponse()       {}
func (*MapCommandResponse) isResponse()    {}
func (*PingResponse) isResponse()          {}
func (*DebugResponse) isResponse()         {}

// NewResponsePayload returns an empty payload of kind k.
func NewResponsePayload(k Kind) (ResponsePayload, error) {
	switch k {
	case KindCreateGame:
		return &CreateGameResponse{}, nil
	case KindJoinGame:
		return &JoinGameResponse{}, nil
	case KindRestartGame:
		return &RestartGameResponse{}, nil
	case KindStartReplay:
		return &StartReplayResponse{}, nil
	case KindLeaveGame:
		return &LeaveGameResponse{}, nil
	case KindQuickSave:
		return &QuickSaveResponse{}, nil
	case KindQuickLoad:
		return &QuickLoadResponse{}, nil
	case KindQuit:
		return &QuitResponse{}, nil
	case KindGameInfo:
		return &GameInfoResponse{}, nil
	case KindObservation:
		return &ObservationResponse{}, nil
	case KindAction:
		return &ActionResponse{}, nil
	case KindObsAction:
		return &ObsActionResponse{}, nil
	case KindStep:
		return &StepResponse{}, nil
	case KindData:
		return &DataResponse{}, nil
	case KindQuery:
		return &QueryResponse{}, nil
	case KindSaveReplay:
		return &SaveReplayResponse{}, nil
	case KindReplayInfo:
		return &ReplayInfoResponse{}, nil
	case KindAvailableMaps:
		return &AvailableMapsResponse{}, nil
	case KindSaveMap:
		return &SaveMapResponse{}, nil
	case KindMapCommand:
		return &MapCommandResponse{}, nil
	case KindPing:
		return &PingResponse{}, nil
	case KindDebug:
		return &DebugResponse{}, nil
	default:
		return nil, ErrUnknownKind
	}
}
