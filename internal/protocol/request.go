package protocol

import "github.com/danmuck/sc2ctl/internal/protocol/tlv"

// Request is the envelope sent to the peer. ID is the optional
// correlation id; it is echoed back but not needed for matching.
type Request struct {
	ID      uint32
	Payload RequestPayload
}

// Kind returns the kind of the populated variant.
func (r Request) Kind() Kind { return KindOf(r.Payload) }

// RequestPayload is the closed set of request variants. Only types in
// this package implement it.
type RequestPayload interface {
	Kind() Kind
	marshalBody(b []byte) []byte
	unmarshalBody(fields []tlv.Field) error
	isRequest()
}

// Opaque carries the encoded fields of a payload that this package does
// not model. They are written back verbatim.
type Opaque struct {
	Body []byte
}

// SetBody replaces the raw fields sent after the modelled ones.
func (o *Opaque) SetBody(b []byte) { o.Body = b }

func (o *Opaque) marshalBody(b []byte) []byte {
	return append(b, o.Body...)
}

func (o *Opaque) unmarshalBody(fields []tlv.Field) error {
	o.Body = rawBody(fields)
	return nil
}

func rawBody(fields []tlv.Field) []byte {
	if len(fields) == 0 {
		return nil
	}
	return tlv.EncodeFields(fields)
}

type (
	CreateGameRequest    struct{ Opaque }
	JoinGameRequest      struct{ Opaque }
	RestartGameRequest   struct{ Opaque }
	StartReplayRequest   struct{ Opaque }
	LeaveGameRequest     struct{ Opaque }
	QuickSaveRequest     struct{ Opaque }
	QuickLoadRequest     struct{ Opaque }
	QuitRequest          struct{ Opaque }
	GameInfoRequest      struct{ Opaque }
	ObservationRequest   struct{ Opaque }
	ActionRequest        struct{ Opaque }
	ObsActionRequest     struct{ Opaque }
	DataRequest          struct{ Opaque }
	QueryRequest         struct{ Opaque }
	SaveReplayRequest    struct{ Opaque }
	ReplayInfoRequest    struct{ Opaque }
	AvailableMapsRequest struct{ Opaque }
	SaveMapRequest       struct{ Opaque }
	MapCommandRequest    struct{ Opaque }
	PingRequest          struct{ Opaque }
	DebugRequest         struct{ Opaque }
)

// StepRequest advances a step-mode game by Count game loops
// (the peer treats 0 as 1).
type StepRequest struct {
	Opaque
	Count uint32
}

const stepCountField = 1

func (r *StepRequest) marshalBody(b []byte) []byte {
	b = tlv.AppendUint32(b, stepCountField, r.Count)
	return append(b, r.Body...)
}

func (r *StepRequest) unmarshalBody(fields []tlv.Field) error {
	var rest []tlv.Field
	for _, f := range fields {
		if f.Num != stepCountField {
			rest = append(rest, f)
			continue
		}
		v, err := f.Uint32()
		if err != nil {
			return err
		}
		r.Count = v
	}
	r.Body = rawBody(rest)
	return nil
}

func (*CreateGameRequest) Kind() Kind    { return KindCreateGame }
func (*JoinGameRequest) Kind() Kind      { return KindJoinGame }
func (*RestartGameRequest) Kind() Kind   { return KindRestartGame }
func (*StartReplayRequest) Kind() Kind   { return KindStartReplay }
func (*LeaveGameRequest) Kind() Kind     { return KindLeaveGame }
func (*QuickSaveRequest) Kind() Kind     { return KindQuickSave }
func (*QuickLoadRequest) Kind() Kind     { return KindQuickLoad }
func (*QuitRequest) Kind() Kind          { return KindQuit }
func (*GameInfoRequest) Kind() Kind      { return KindGameInfo }
func (*ObservationRequest) Kind() Kind   { return KindObservation }
func (*ActionRequest) Kind() Kind        { return KindAction }
func (*ObsActionRequest) Kind() Kind     { return KindObsAction }
func (*StepRequest) Kind() Kind          { return KindStep }
func (*DataRequest) Kind() Kind          { return KindData }
func (*QueryRequest) Kind() Kind         { return KindQuery }
func (*SaveReplayRequest) Kind() Kind    { return KindSaveReplay }
func (*ReplayInfoRequest) Kind() Kind    { return KindReplayInfo }
func (*AvailableMapsRequest) Kind() Kind { return KindAvailableMaps }
func (*SaveMapRequest) Kind() Kind       { return KindSaveMap }
func (*MapCommandRequest) Kind() Kind    { return KindMapCommand }
func (*PingRequest) Kind() Kind          { return KindPing }
func (*DebugRequest) Kind() Kind         { return KindDebug }

func (*CreateGameRequest) isRequest()    {}
func (*JoinGameRequest) isRequest()      {}
func (*RestartGameRequest) isRequest()   {}
func (*StartReplayRequest) isRequest()   {}
func (*LeaveGameRequest) isRequest()     {}
func (*QuickSaveRequest) isRequest()     {}
func (*QuickLoadRequest) isRequest()     {}
func (*QuitRequest) isRequest()          {}
func (*GameInfoRequest) isRequest()      {}
func (*ObservationRequest) isRequest()   {}
func (*ActionRequest) isRequest()        {}
func (*ObsActionRequest) isRequest()     {}
func (*StepRequest) isRequest()          {}
func (*DataRequest) isRequest()          {}
func (*QueryRequest) isRequest()         {}
func (*SaveReplayRequest) isRequest()    {}
func (*ReplayInfoRequest) isRequest()    {}
func (*AvailableMapsRequest) isRequest() {}
func (*SaveMapRequest) isRequest()       {}
func (*MapCommandRequest) isRequest()    {}
func (*PingRequest) isRequest()          {}
func (*DebugRequest) isRequest()         {}

// NewRequestPayload returns an empty payload of kind k.
func NewRequestPayload(k Kind) (RequestPayload, error) {
	switch k {
	case KindCreateGame:
		return &CreateGameRequest{}, nil
	case KindJoinGame:
		return &JoinGameRequest{}, nil
	case KindRestartGame:
		return &RestartGameRequest{}, nil
	case KindStartReplay:
		return &StartReplayRequest{}, nil
	case KindLeaveGame:
		return &LeaveGameRequest{}, nil
	case KindQuickSave:
		return &QuickSaveRequest{}, nil
	case KindQuickLoad:
		return &QuickLoadRequest{}, nil
	case KindQuit:
		return &QuitRequest{}, nil
	case KindGameInfo:
		return &GameInfoRequest{}, nil
	case KindObservation:
		return &ObservationRequest{}, nil
	case KindAction:
		return &ActionRequest{}, nil
	case KindObsAction:
		return &ObsActionRequest{}, nil
	case KindStep:
		return &StepRequest{}, nil
	case KindData:
		return &DataRequest{}, nil
	case KindQuery:
		return &QueryRequest{}, nil
	case KindSaveReplay:
		return &SaveReplayRequest{}, nil
	case KindReplayInfo:
		return &ReplayInfoRequest{}, nil
	case KindAvailableMaps:
		return &AvailableMapsRequest{}, nil
	case KindSaveMap:
		return &SaveMapRequest{}, nil
	case KindMapCommand:
		return &MapCommandRequest{}, nil
	case KindPing:
		return &PingRequest{}, nil
	case KindDebug:
		return &DebugRequest{}, nil
	default:
		return nil, ErrUnknownKind
	}
}
