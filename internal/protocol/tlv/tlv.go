// Package tlv owns field-level primitives of the protobuf wire format
// (tag, wire type, value) used by the sc2api envelope codec.
package tlv

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrShortFieldHeader  = errors.New("tlv: short field header")
	ErrShortFieldValue   = errors.New("tlv: short field value")
	ErrFieldTypeMismatch = errors.New("tlv: field type mismatch")
	ErrValueOverflow     = errors.New("tlv: value overflows target type")
)

// Wire types from the protobuf encoding.
const (
	TypeVarint  = protowire.VarintType
	TypeFixed32 = protowire.Fixed32Type
	TypeFixed64 = protowire.Fixed64Type
	TypeBytes   = protowire.BytesType
)

// Field is one decoded wire field. Raw holds the complete encoding,
// tag included, so unknown fields can be written back untouched.
type Field struct {
	Num    protowire.Number
	Type   protowire.Type
	Varint uint64
	Value  []byte
	Raw    []byte
}

// DecodeFields splits payload into its top-level fields.
func DecodeFields(payload []byte) ([]Field, error) {
	fields := make([]Field, 0, 4)
	i := 0
	for i < len(payload) {
		num, typ, n := protowire.ConsumeTag(payload[i:])
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrShortFieldHeader, protowire.ParseError(n))
		}
		m := protowire.ConsumeFieldValue(num, typ, payload[i+n:])
		if m < 0 {
			return nil, fmt.Errorf("%w: field %d: %v", ErrShortFieldValue, num, protowire.ParseError(m))
		}
		val := payload[i+n : i+n+m]
		raw := make([]byte, n+m)
		copy(raw, payload[i:i+n+m])
		f := Field{Num: num, Type: typ, Raw: raw}
		switch typ {
		case protowire.VarintType:
			f.Varint, _ = protowire.ConsumeVarint(val)
		case protowire.BytesType:
			v, _ := protowire.ConsumeBytes(val)
			f.Value = make([]byte, len(v))
			copy(f.Value, v)
		default:
			f.Value = raw[n:]
		}
		fields = append(fields, f)
		i += n + m
	}
	return fields, nil
}

// EncodeFields concatenates the raw encodings of fields.
func EncodeFields(fields []Field) []byte {
	out := make([]byte, 0)
	for _, f := range fields {
		out = append(out, f.Raw...)
	}
	return out
}

// GetField returns the last field numbered num, matching protobuf
// "last one wins" semantics for scalars.
func GetField(fields []Field, num protowire.Number) (Field, bool) {
	for i := len(fields) - 1; i >= 0; i-- {
		if fields[i].Num == num {
			return fields[i], true
		}
	}
	return Field{}, false
}

func MustType(f Field, expected protowire.Type) error {
	if f.Type != expected {
		return fmt.Errorf("%w: field %d got %d want %d", ErrFieldTypeMismatch, f.Num, f.Type, expected)
	}
	return nil
}

// Uint32 returns a varint field as uint32.
func (f Field) Uint32() (uint32, error) {
	if err := MustType(f, TypeVarint); err != nil {
		return 0, err
	}
	if f.Varint > math.MaxUint32 {
		return 0, fmt.Errorf("%w: field %d", ErrValueOverflow, f.Num)
	}
	return uint32(f.Varint), nil
}

// Int32 returns a varint field as int32, the representation protobuf
// uses for enums. Negative values arrive sign-extended to 64 bits.
func (f Field) Int32() (int32, error) {
	if err := MustType(f, TypeVarint); err != nil {
		return 0, err
	}
	v := int64(f.Varint)
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: field %d", ErrValueOverflow, f.Num)
	}
	return int32(v), nil
}

// Bool returns a varint field as bool.
func (f Field) Bool() (bool, error) {
	if err := MustType(f, TypeVarint); err != nil {
		return false, err
	}
	return protowire.DecodeBool(f.Varint), nil
}

// String returns a length-delimited field as string.
func (f Field) String() (string, error) {
	if err := MustType(f, TypeBytes); err != nil {
		return "", err
	}
	return string(f.Value), nil
}

// Bytes returns a copy of a length-delimited field.
func (f Field) Bytes() ([]byte, error) {
	if err := MustType(f, TypeBytes); err != nil {
		return nil, err
	}
	buf := make([]byte, len(f.Value))
	copy(buf, f.Value)
	return buf, nil
}

// AppendUint32 appends a varint field, skipping the proto3 zero value.
func AppendUint32(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

// AppendInt32 appends an enum/int32 field, skipping zero.
func AppendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func AppendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func AppendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// AppendRepeatedString appends one field per element, empty strings included.
func AppendRepeatedString(b []byte, num protowire.Number, vs []string) []byte {
	for _, v := range vs {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

// AppendMessage appends an embedded message. Unlike scalars, an empty
// message is still written since its presence is meaningful.
func AppendMessage(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}
