package protocol

import "errors"

var (
	ErrDecode      = errors.New("protocol: malformed message")
	ErrNilPayload  = errors.New("protocol: nil payload")
	ErrUnknownKind = errors.New("protocol: unknown kind")
)
