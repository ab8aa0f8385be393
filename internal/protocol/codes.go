package protocol

import "fmt"

// Embedded application error codes carried by some response variants.
// Zero means unset, i.e. no error.

type CreateGameError int32

const (
	CreateGameErrorUnset CreateGameError = iota
	CreateGameMissingMap
	CreateGameInvalidMapPath
	CreateGameInvalidMapData
	CreateGameInvalidMapName
	CreateGameInvalidMapHandle
	CreateGameMissingPlayerSetup
	CreateGameInvalidPlayerSetup
	CreateGameMultiplayerUnsupported
)

var createGameErrorNames = []string{
	"Unset",
	"MissingMap",
	"InvalidMapPath",
	"InvalidMapData",
	"InvalidMapName",
	"InvalidMapHandle",
	"MissingPlayerSetup",
	"InvalidPlayerSetup",
	"MultiplayerUnsupported",
}

func (e CreateGameError) String() string { return codeName(createGameErrorNames, int32(e)) }

type JoinGameError int32

const (
	JoinGameErrorUnset JoinGameError = iota
	JoinGameMissingParticipation
	JoinGameInvalidObservedPlayerID
	JoinGameMissingOptions
	JoinGameMissingPorts
	JoinGameGameFull
	JoinGameLaunchError
	JoinGameFeatureUnsupported
	JoinGameNoSpaceForUser
	JoinGameMapDoesNotExist
	JoinGameCannotOpenMap
	JoinGameChecksumError
	JoinGameNetworkError
	JoinGameOtherError
)

var joinGameErrorNames = []string{
	"Unset",
	"MissingParticipation",
	"InvalidObservedPlayerId",
	"MissingOptions",
	"MissingPorts",
	"GameFull",
	"LaunchError",
	"FeatureUnsupported",
	"NoSpaceForUser",
	"MapDoesNotExist",
	"CannotOpenMap",
	"ChecksumError",
	"NetworkError",
	"OtherError",
}

func (e JoinGameError) String() string { return codeName(joinGameErrorNames, int32(e)) }

type RestartGameError int32

const (
	RestartGameErrorUnset RestartGameError = iota
	RestartGameLaunchError
)

var restartGameErrorNames = []string{"Unset", "LaunchError"}

func (e RestartGameError) String() string { return codeName(restartGameErrorNames, int32(e)) }

type StartReplayError int32

const (
	StartReplayErrorUnset StartReplayError = iota
	StartReplayMissingReplay
	StartReplayInvalidReplayPath
	StartReplayInvalidReplayData
	StartReplayInvalidMapData
	StartReplayInvalidObservedPlayerID
	StartReplayBadOptions
	StartReplayLaunchError
)

var startReplayErrorNames = []string{
	"Unset",
	"MissingReplay",
	"InvalidReplayPath",
	"InvalidReplayData",
	"InvalidMapData",
	"InvalidObservedPlayerId",
	"BadOptions",
	"LaunchError",
}

func (e StartReplayError) String() string { return codeName(startReplayErrorNames, int32(e)) }

type ReplayInfoError int32

const (
	ReplayInfoErrorUnset ReplayInfoError = iota
	ReplayInfoMissingReplay
	ReplayInfoInvalidReplayPath
	ReplayInfoInvalidReplayData
	ReplayInfoParsingError
	ReplayInfoDownloadError
)

var replayInfoErrorNames = []string{
	"Unset",
	"MissingReplay",
	"InvalidReplayPath",
	"InvalidReplayData",
	"ParsingError",
	"DownloadError",
}

func (e ReplayInfoError) String() string { return codeName(replayInfoErrorNames, int32(e)) }

type SaveMapError int32

const (
	SaveMapErrorUnset SaveMapError = iota
	SaveMapInvalidMapData
)

var saveMapErrorNames = []string{"Unset", "InvalidMapData"}

func (e SaveMapError) String() string { return codeName(saveMapErrorNames, int32(e)) }

type MapCommandError int32

const (
	MapCommandErrorUnset MapCommandError = iota
	MapCommandNoTriggerError
)

var mapCommandErrorNames = []string{"Unset", "NoTriggerError"}

func (e MapCommandError) String() string { return codeName(mapCommandErrorNames, int32(e)) }

func codeName(names []string, code int32) string {
	if code >= 0 && int(code) < len(names) {
		return names[code]
	}
	return fmt.Sprintf("Error(%d)", code)
}
