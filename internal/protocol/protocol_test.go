package protocol

import (
	"errors"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/danmuck/sc2ctl/internal/protocol/tlv"
)

func protowireNumber(k Kind) protowire.Number { return protowire.Number(k) }

// setBody fills the promoted Opaque.Body of any variant.
func setBody(t *testing.T, p any, body []byte) {
	t.Helper()
	f := reflect.ValueOf(p).Elem().FieldByName("Body")
	if !f.IsValid() {
		t.Fatalf("%T has no Body", p)
	}
	f.SetBytes(body)
}

func TestRequestRoundTripEveryKind(t *testing.T) {
	unknown := tlv.AppendString(nil, 50, "opaque")
	for _, k := range Kinds() {
		p, err := NewRequestPayload(k)
		if err != nil {
			t.Fatalf("new payload %s: %v", k, err)
		}
		setBody(t, p, unknown)
		if step, ok := p.(*StepRequest); ok {
			step.Count = 8
		}
		req := Request{ID: uint32(k) + 100, Payload: p}

		b, err := EncodeRequest(req)
		if err != nil {
			t.Fatalf("encode %s: %v", k, err)
		}
		got, err := DecodeRequest(b)
		if err != nil {
			t.Fatalf("decode %s: %v", k, err)
		}
		if got.Kind() != k {
			t.Fatalf("kind: got %s want %s", got.Kind(), k)
		}
		if !reflect.DeepEqual(got, req) {
			t.Fatalf("round trip %s: got %+v want %+v", k, got, req)
		}
	}
}

func TestRequestRoundTripEmptyBodies(t *testing.T) {
	for _, k := range Kinds() {
		p, _ := NewRequestPayload(k)
		req := Request{Payload: p}
		b, err := EncodeRequest(req)
		if err != nil {
			t.Fatalf("encode %s: %v", k, err)
		}
		got, err := DecodeRequest(b)
		if err != nil {
			t.Fatalf("decode %s: %v", k, err)
		}
		if !reflect.DeepEqual(got, req) {
			t.Fatalf("round trip %s: got %+v want %+v", k, got, req)
		}
	}
}

func TestResponseRoundTripModelledFields(t *testing.T) {
	cases := []ResponsePayload{
		&CreateGameResponse{Error: CreateGameInvalidMapPath, ErrorDetails: "no such map"},
		&JoinGameResponse{PlayerID: 2, Error: JoinGameGameFull, ErrorDetails: "full"},
		&RestartGameResponse{Error: RestartGameLaunchError, ErrorDetails: "x", NeedHardReset: true},
		&StartReplayResponse{Error: StartReplayBadOptions, ErrorDetails: "opts"},
		&ReplayInfoResponse{MapName: "Acropolis", LocalMapPath: "a.SC2Map", GameVersion: "5.0.11", Error: ReplayInfoParsingError, ErrorDetails: "bad"},
		&SaveMapResponse{Error: SaveMapInvalidMapData},
		&MapCommandResponse{Error: MapCommandNoTriggerError, ErrorDetails: "trigger"},
		&PingResponse{GameVersion: "5.0.11", DataVersion: "ABC", DataBuild: 89165, BaseBuild: 89165},
		&AvailableMapsResponse{LocalMapPaths: []string{"a", ""}, BattlenetMapNames: []string{"Blackburn LE"}},
		&StepResponse{Opaque: Opaque{Body: tlv.AppendUint32(nil, 2, 7)}},
	}
	for _, p := range cases {
		resp := Response{ID: 9, Payload: p, Status: StatusInGame, Warnings: []string{"w1", "w2"}}
		b, err := EncodeResponse(resp)
		if err != nil {
			t.Fatalf("encode %T: %v", p, err)
		}
		got, err := DecodeResponse(b)
		if err != nil {
			t.Fatalf("decode %T: %v", p, err)
		}
		if !reflect.DeepEqual(got, resp) {
			t.Fatalf("round trip %T:\n got %+v\nwant %+v", p, got.Payload, resp.Payload)
		}
	}
}

func TestResponseUnknownFieldsPreserved(t *testing.T) {
	body := tlv.AppendString(nil, 1, "5.0.11")
	body = tlv.AppendString(body, 40, "future")
	raw := tlv.AppendMessage(nil, protowireNumber(KindPing), body)

	resp, err := DecodeResponse(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ping, ok := resp.Payload.(*PingResponse)
	if !ok {
		t.Fatalf("payload type %T", resp.Payload)
	}
	if ping.GameVersion != "5.0.11" {
		t.Fatalf("game version %q", ping.GameVersion)
	}
	if want := tlv.AppendString(nil, 40, "future"); !reflect.DeepEqual(ping.Body, want) {
		t.Fatalf("body %x want %x", ping.Body, want)
	}
}

func TestResponseWithoutVariantDecodes(t *testing.T) {
	b, err := EncodeResponse(Response{Status: StatusInGame, Warnings: []string{"boom"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeResponse(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Payload != nil || got.Kind() != KindNone {
		t.Fatalf("expected no payload, got %T", got.Payload)
	}
	if got.Status != StatusInGame || len(got.Warnings) != 1 || got.Warnings[0] != "boom" {
		t.Fatalf("envelope fields lost: %+v", got)
	}

	empty, err := DecodeResponse(nil)
	if err != nil || empty.Kind() != KindNone {
		t.Fatalf("empty buffer: %+v %v", empty, err)
	}
}

func TestDecodeLastVariantWins(t *testing.T) {
	raw := tlv.AppendMessage(nil, protowireNumber(KindPing), nil)
	raw = tlv.AppendMessage(raw, protowireNumber(KindQuit), nil)
	got, err := DecodeRequest(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind() != KindQuit {
		t.Fatalf("expected Quit, got %s", got.Kind())
	}

	// the same variant split across occurrences merges like protobuf
	split := tlv.AppendMessage(nil, protowireNumber(KindJoinGame), tlv.AppendInt32(nil, 2, int32(JoinGameGameFull)))
	split = tlv.AppendMessage(split, protowireNumber(KindJoinGame), tlv.AppendUint32(nil, 1, 7))
	split = tlv.AppendInt32(split, fieldStatus, int32(StatusInGame))
	resp, err := DecodeResponse(split)
	if err != nil {
		t.Fatalf("decode split: %v", err)
	}
	join, ok := resp.Payload.(*JoinGameResponse)
	if !ok {
		t.Fatalf("payload type %T", resp.Payload)
	}
	if join.Error != JoinGameGameFull || join.PlayerID != 7 {
		t.Fatalf("split occurrences not merged: %+v", join)
	}

	// a different variant after a split one still replaces it
	split = tlv.AppendMessage(split, protowireNumber(KindPing), tlv.AppendString(nil, 1, "5.0.14"))
	resp, err = DecodeResponse(split)
	if err != nil {
		t.Fatalf("decode replaced: %v", err)
	}
	if ping, ok := resp.Payload.(*PingResponse); !ok || ping.GameVersion != "5.0.14" {
		t.Fatalf("expected Ping to replace JoinGame, got %+v", resp.Payload)
	}
}

func TestDecodeSkipsUnknownEnvelopeFields(t *testing.T) {
	raw := tlv.AppendString(nil, 60, "extension")
	raw = tlv.AppendMessage(raw, protowireNumber(KindGameInfo), nil)
	raw = tlv.AppendUint32(raw, fieldID, 3)
	got, err := DecodeRequest(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind() != KindGameInfo || got.ID != 3 {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string][]byte{
		"truncated length":     {0x0a, 0x05, 0x01},
		"lone continuation":    {0x80},
		"variant as varint":    tlv.AppendUint32(nil, protowireNumber(KindPing), 1),
		"id as bytes":          tlv.AppendString(nil, fieldID, "x"),
		"status as bytes":      tlv.AppendString(nil, fieldStatus, "x"),
		"malformed body":       tlv.AppendMessage(nil, protowireNumber(KindStep), []byte{0x80}),
		"modelled wrong types": tlv.AppendMessage(nil, protowireNumber(KindStep), tlv.AppendString(nil, 1, "x")),
	}
	for name, raw := range cases {
		if _, err := DecodeRequest(raw); !errors.Is(err, ErrDecode) {
			t.Fatalf("%s: expected ErrDecode, got %v", name, err)
		}
	}

	badPing := tlv.AppendMessage(nil, protowireNumber(KindPing), tlv.AppendUint32(nil, 1, 4))
	if _, err := DecodeResponse(badPing); !errors.Is(err, ErrDecode) {
		t.Fatalf("ping game_version as varint: expected ErrDecode, got %v", err)
	}
	if _, err := DecodeResponse(badPing); !errors.Is(err, tlv.ErrFieldTypeMismatch) {
		t.Fatalf("expected tlv cause, got %v", err)
	}
}

func TestEncodeRequestRequiresPayload(t *testing.T) {
	if _, err := EncodeRequest(Request{}); !errors.Is(err, ErrNilPayload) {
		t.Fatalf("nil payload: %v", err)
	}
	var typedNil *PingRequest
	if _, err := EncodeRequest(Request{Payload: typedNil}); !errors.Is(err, ErrNilPayload) {
		t.Fatalf("typed nil payload: %v", err)
	}
}

func TestKindTaxonomy(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 22 {
		t.Fatalf("expected 22 kinds, got %d", len(kinds))
	}
	for _, k := range kinds {
		req, err := NewRequestPayload(k)
		if err != nil || req.Kind() != k {
			t.Fatalf("request payload %s: %v", k, err)
		}
		resp, err := NewResponsePayload(k)
		if err != nil || resp.Kind() != k {
			t.Fatalf("response payload %s: %v", k, err)
		}
		parsed, err := ParseKind(k.String())
		if err != nil || parsed != k {
			t.Fatalf("parse %s: %v", k, err)
		}
	}
	if KindOf(nil) != KindNone || (Response{}).Kind() != KindNone {
		t.Fatalf("nil payloads must project to KindNone")
	}
	for in, want := range map[string]Kind{
		"create_game":    KindCreateGame,
		"available-maps": KindAvailableMaps,
		"ObsAction":      KindObsAction,
		" ping ":         KindPing,
	} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q)=%s,%v want %s", in, got, err, want)
		}
	}
	if _, err := ParseKind("none"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("none must not parse: %v", err)
	}
	if _, err := NewRequestPayload(KindNone); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("KindNone payload: %v", err)
	}
	if got := Kind(40).String(); got != "Kind(40)" {
		t.Fatalf("unknown kind string %q", got)
	}
}

func TestStatusNames(t *testing.T) {
	for _, s := range Statuses() {
		got, err := ParseStatus(s.String())
		if err != nil || got != s {
			t.Fatalf("parse %s: %v", s, err)
		}
	}
	if got, _ := ParseStatus("in_game"); got != StatusInGame {
		t.Fatalf("in_game parsed as %s", got)
	}
	if JoinGameGameFull.String() != "GameFull" || CreateGameError(42).String() != "Error(42)" {
		t.Fatalf("code names wrong")
	}
}
