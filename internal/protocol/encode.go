package protocol

import (
	"reflect"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/danmuck/sc2ctl/internal/protocol/tlv"
)

// Envelope field numbers shared by request and response.
const (
	fieldID       protowire.Number = 97
	fieldWarnings protowire.Number = 98
	fieldStatus   protowire.Number = 99
)

// EncodeRequest serializes req. The payload is required.
func EncodeRequest(req Request) ([]byte, error) {
	if isNilPayload(req.Payload) {
		return nil, ErrNilPayload
	}
	k := req.Payload.Kind()
	if !k.Valid() {
		return nil, ErrUnknownKind
	}
	b := tlv.AppendMessage(nil, protowire.Number(k), req.Payload.marshalBody(nil))
	b = tlv.AppendUint32(b, fieldID, req.ID)
	return b, nil
}

// EncodeResponse serializes resp. A nil payload encodes an envelope
// without a variant, which is what a misbehaving peer may send.
func EncodeResponse(resp Response) ([]byte, error) {
	var b []byte
	if !isNilPayload(resp.Payload) {
		k := resp.Payload.Kind()
		if !k.Valid() {
			return nil, ErrUnknownKind
		}
		b = tlv.AppendMessage(b, protowire.Number(k), resp.Payload.marshalBody(nil))
	}
	b = tlv.AppendUint32(b, fieldID, resp.ID)
	b = tlv.AppendRepeatedString(b, fieldWarnings, resp.Warnings)
	b = tlv.AppendInt32(b, fieldStatus, int32(resp.Status))
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

// isNilPayload also catches typed nil pointers stored in the interface.
func isNilPayload(p any) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
