package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/sc2ctl/internal/protocol"
)

var (
	ErrTransport     = errors.New("session: transport failure")
	ErrDecode        = errors.New("session: malformed response")
	ErrEmptyResponse = errors.New("session: empty response")
	ErrNoPayload     = errors.New("session: request has no payload")
	ErrClientClosed  = errors.New("session: client closed")
)

// BadResponseError reports a response whose kind does not pair with
// the request that was sent.
type BadResponseError struct {
	Got      protocol.Kind
	Expected protocol.Kind
}

func (e *BadResponseError) Error() string {
	return fmt.Sprintf("session: bad response %s, expected %s", e.Got, e.Expected)
}

// BadStatusError reports a peer status outside the transition table.
type BadStatusError struct {
	Got      protocol.Status
	Expected []protocol.Status
}

func (e *BadStatusError) Error() string {
	names := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		names[i] = s.String()
	}
	return fmt.Sprintf("session: bad status %s, expected any of [%s]", e.Got, strings.Join(names, " "))
}

// Sc2Error is an application error the peer embedded in a response.
// Kind is KindNone for a response that carried no payload at all.
type Sc2Error struct {
	Kind    protocol.Kind
	Code    int32
	Message string
	Detail  string
}

func (e *Sc2Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("sc2: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("sc2: %s: %s: %s", e.Kind, e.Message, e.Detail)
}

// Is matches ErrEmptyResponse for the payload-less case.
func (e *Sc2Error) Is(target error) bool {
	return target == ErrEmptyResponse && e.Kind == protocol.KindNone
}

// Class is the flat error taxonomy callers branch on.
type Class int

const (
	ClassNone Class = iota
	ClassTransport
	ClassDecode
	ClassBadResponse
	ClassBadStatus
	ClassApplication
	// ClassUsage covers requests rejected before any I/O.
	ClassUsage
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassTransport:
		return "transport"
	case ClassDecode:
		return "decode"
	case ClassBadResponse:
		return "bad_response"
	case ClassBadStatus:
		return "bad_status"
	case ClassApplication:
		return "application"
	case ClassUsage:
		return "usage"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// ClassOf maps err onto the taxonomy. Errors from outside the session
// pipeline classify as transport failures.
func ClassOf(err error) Class {
	var (
		badRes    *BadResponseError
		badStatus *BadStatusError
		sc2       *Sc2Error
	)
	switch {
	case err == nil:
		return ClassNone
	case errors.As(err, &badRes):
		return ClassBadResponse
	case errors.As(err, &badStatus):
		return ClassBadStatus
	case errors.As(err, &sc2):
		return ClassApplication
	case errors.Is(err, ErrDecode), errors.Is(err, protocol.ErrDecode):
		return ClassDecode
	case errors.Is(err, ErrNoPayload), errors.Is(err, protocol.ErrNilPayload), errors.Is(err, protocol.ErrUnknownKind):
		return ClassUsage
	default:
		return ClassTransport
	}
}

func transportErr(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

func decodeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrDecode, err)
}
