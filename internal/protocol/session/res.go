package session

import "github.com/danmuck/sc2ctl/internal/protocol"

// Res is a validated response: the payload plus the status and
// warnings from its envelope.
type Res[T any] struct {
	Data     T
	Status   protocol.Status
	Warnings []string
}
