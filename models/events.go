package models

import "github.com/wfunc/fruitbox/board"

// Event types pushed to room subscribers.
const (
	EventPlayerJoined     = "player_joined"
	EventGameStarted      = "game_started"
	EventMoveMade         = "move_made"
	EventInvalidMove      = "invalid_move"
	EventBoardRegenerated = "board_regenerated"
	EventGameFinished     = "game_finished"
)

// Event carries the minimal delta a client needs to refresh its UI.
type Event struct {
	Type       string           `json:"type"`
	RoomCode   string           `json:"room_code"`
	Status     string           `json:"status,omitempty"`
	PlayerID   int64            `json:"player_id,omitempty"`
	Player     *PlayerView      `json:"player,omitempty"`
	Players    []PlayerView     `json:"players,omitempty"`
	Move       *board.Rectangle `json:"move,omitempty"`
	Points     int              `json:"points,omitempty"`
	Generation int              `json:"generation,omitempty"`
	Message    string           `json:"message,omitempty"`
}
