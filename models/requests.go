package models

import "github.com/wfunc/fruitbox/board"

// Request bodies shared by the HTTP API and websocket packets.

type CreateRoomRequest struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"max_players"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
}

// SubscribeRequest binds a connection to a room. PlayerID 0 subscribes as
// a spectator.
type SubscribeRequest struct {
	RoomCode string `json:"room_code"`
	PlayerID int64  `json:"player_id"`
}

// SelectionRequest names two opposite corners of a rectangle.
type SelectionRequest struct {
	StartRow int `json:"start_row"`
	StartCol int `json:"start_col"`
	EndRow   int `json:"end_row"`
	EndCol   int `json:"end_col"`
}

func (r SelectionRequest) Rectangle() board.Rectangle {
	return board.NewRectangle(r.StartRow, r.StartCol, r.EndRow, r.EndCol)
}

type FinishRequest struct {
	FinalScore int `json:"final_score"`
}

type TimeRequest struct {
	TimeRemaining int `json:"time_remaining"`
}

// JoinResult answers a join with the new player's id and first board.
type JoinResult struct {
	PlayerID int64     `json:"player_id"`
	RoomCode string    `json:"room_code"`
	Board    BoardView `json:"board"`
}

type CleanupResult struct {
	RoomsDeleted int `json:"rooms_deleted"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
