package session

import (
	"slices"

	"github.com/danmuck/sc2ctl/internal/protocol"
)

var inGameStatuses = []protocol.Status{protocol.StatusInGame, protocol.StatusInReplay, protocol.StatusEnded}

// statusTransitions lists the statuses a peer may report after a
// successful request of each kind. Kinds not listed must leave the
// status unchanged.
var statusTransitions = map[protocol.Kind][]protocol.Status{
	protocol.KindCreateGame:  {protocol.StatusInitGame},
	protocol.KindJoinGame:    {protocol.StatusInGame},
	protocol.KindRestartGame: {protocol.StatusInGame},
	protocol.KindStartReplay: {protocol.StatusInReplay},
	protocol.KindLeaveGame:   {protocol.StatusLaunched},
	protocol.KindQuit:        {protocol.StatusQuit},
	protocol.KindStep:        inGameStatuses,
	protocol.KindObservation: inGameStatuses,
}

// ExpectedStatus returns the statuses accepted after a request of kind
// k given the previous status. unconstrained is true when any status is
// accepted: Debug requests and the first exchange of a session.
func ExpectedStatus(k protocol.Kind, previous protocol.Status) (expected []protocol.Status, unconstrained bool) {
	if previous == protocol.StatusUnset || k == protocol.KindDebug {
		return nil, true
	}
	if set, ok := statusTransitions[k]; ok {
		return slices.Clone(set), false
	}
	return []protocol.Status{previous}, false
}

// ValidateStatus checks reported against the transition table and
// returns the status the session should adopt.
func ValidateStatus(k protocol.Kind, reported, previous protocol.Status) (protocol.Status, error) {
	expected, unconstrained := ExpectedStatus(k, previous)
	if unconstrained || slices.Contains(expected, reported) {
		return reported, nil
	}
	return previous, &BadStatusError{Got: reported, Expected: expected}
}
