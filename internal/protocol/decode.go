package protocol

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/danmuck/sc2ctl/internal/protocol/tlv"
)

// DecodeRequest parses one request envelope. An envelope without a
// variant decodes with a nil Payload.
func DecodeRequest(b []byte) (Request, error) {
	var req Request
	env, err := decodeEnvelope(b)
	if err != nil {
		return req, errors.WithMessage(err, "decode request")
	}
	req.ID = env.id
	if env.kind == KindNone {
		return req, nil
	}
	p, err := NewRequestPayload(env.kind)
	if err != nil {
		return req, errors.WithMessage(decodeErr(err), "decode request")
	}
	if err := unmarshalPayload(env.body, p.unmarshalBody); err != nil {
		return req, errors.WithMessagef(err, "decode request %s", env.kind)
	}
	req.Payload = p
	return req, nil
}

// DecodeResponse parses one response envelope. A response without a
// variant decodes with a nil Payload; classifying it is up to the caller.
func DecodeResponse(b []byte) (Response, error) {
	var resp Response
	env, err := decodeEnvelope(b)
	if err != nil {
		return resp, errors.WithMessage(err, "decode response")
	}
	resp.ID = env.id
	resp.Status = env.status
	resp.Warnings = env.warnings
	if env.kind == KindNone {
		return resp, nil
	}
	p, err := NewResponsePayload(env.kind)
	if err != nil {
		return resp, errors.WithMessage(decodeErr(err), "decode response")
	}
	if err := unmarshalPayload(env.body, p.unmarshalBody); err != nil {
		return resp, errors.WithMessagef(err, "decode response %s", env.kind)
	}
	resp.Payload = p
	return resp, nil
}

type envelope struct {
	kind     Kind
	body     []byte
	id       uint32
	status   Status
	warnings []string
}

func decodeEnvelope(b []byte) (envelope, error) {
	var env envelope
	fields, err := tlv.DecodeFields(b)
	if err != nil {
		return env, decodeErr(err)
	}
	for _, f := range fields {
		switch {
		case Kind(f.Num).Valid():
			if err := tlv.MustType(f, tlv.TypeBytes); err != nil {
				return env, decodeErr(err)
			}
			// a repeated member merges into the previous occurrence,
			// a different member replaces it
			if Kind(f.Num) == env.kind {
				env.body = append(append([]byte(nil), env.body...), f.Value...)
				continue
			}
			env.kind = Kind(f.Num)
			env.body = f.Value
		case f.Num == fieldID:
			v, err := f.Uint32()
			if err != nil {
				return env, decodeErr(err)
			}
			env.id = v
		case f.Num == fieldWarnings:
			v, err := f.String()
			if err != nil {
				return env, decodeErr(err)
			}
			env.warnings = append(env.warnings, v)
		case f.Num == fieldStatus:
			v, err := f.Int32()
			if err != nil {
				return env, decodeErr(err)
			}
			env.status = Status(v)
		}
	}
	return env, nil
}

func unmarshalPayload(body []byte, into func([]tlv.Field) error) error {
	fields, err := tlv.DecodeFields(body)
	if err != nil {
		return decodeErr(err)
	}
	if err := into(fields); err != nil {
		return decodeErr(err)
	}
	return nil
}

// decodeErr keeps the tlv cause reachable while matching ErrDecode.
func decodeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrDecode, err)
}
