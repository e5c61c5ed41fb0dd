package network

import "encoding/json"

const (
	MsgTypeHeartbeat   = 1
	MsgTypeJoinGame    = 101
	MsgTypeLeaveGame   = 102
	MsgTypeCreateGame  = 103
	MsgTypeListGames   = 104
	MsgTypeJoinAck     = 105
	MsgTypePlayerMove  = 202
	MsgTypePlayers     = 301
	MsgTypeTurn        = 303
	MsgTypeRoundResult = 304
	MsgTypeGameStopped = 305
	MsgTypeError       = 500
)

type CreateGameRequest struct {
	Name  string `json:"name"`
	Rules string `json:"rules,omitempty"`
}

// JoinGameRequest is also used for leaving.
type JoinGameRequest struct {
	Game     string `json:"game"`
	PlayerID string `json:"player_id"`
}

type MoveRequest struct {
	Weapon string `json:"weapon"`
}

type GameInfo struct {
	Name    string   `json:"name"`
	Rules   string   `json:"rules"`
	Players []string `json:"players"`
	Ready   bool     `json:"ready"`
	Running bool     `json:"running"`
	Round   int      `json:"round"`
}

type GamesMessage struct {
	Games []GameInfo `json:"games"`
}

type JoinAck struct {
	Game     string   `json:"game"`
	PlayerID string   `json:"player_id"`
	Weapons  []string `json:"weapons"`
}

type PlayersMessage struct {
	Game    string   `json:"game"`
	Players []string `json:"players"`
	Ready   bool     `json:"ready"`
}

// TurnMessage announces the number of the round waiting for moves.
type TurnMessage struct {
	Game  string `json:"game"`
	Round int    `json:"round"`
}

type GameStoppedMessage struct {
	Game   string `json:"game"`
	Reason string `json:"reason"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

// Encode marshals a payload. Payload types here always marshal.
func Encode(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
