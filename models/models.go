// models/models.go
package models

import (
	"github.com/wfunc/fruitbox/board"
)

// PlayerView 玩家信息（用于房间状态和事件）
type PlayerView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Color string `json:"color"`
}

// RoomStatus 房间状态
type RoomStatus struct {
	RoomCode    string       `json:"room_code"`
	Name        string       `json:"name"`
	Status      string       `json:"status"`
	PlayerCount int          `json:"players_count"`
	MaxPlayers  int          `json:"max_players"`
	CanStart    bool         `json:"can_start"`
	Generation  int          `json:"generation"`
	Phase       string       `json:"phase,omitempty"`
	Players     []PlayerView `json:"players,omitempty"`
}

// BoardView is the per-player board served to polling clients. Empty
// cells are 0.
type BoardView struct {
	RoomCode      string     `json:"room_code"`
	PlayerID      int64      `json:"player_id"`
	Board         board.Grid `json:"board"`
	Generation    int        `json:"generation"`
	Score         int        `json:"score"`
	TimeRemaining int        `json:"time_remaining"`
	Finished      bool       `json:"finished"`
}

// SelectionResult 提交选区的结果
type SelectionResult struct {
	Accepted      bool       `json:"accepted"`
	PointsEarned  int        `json:"points_earned"`
	Score         int        `json:"score"`
	Board         board.Grid `json:"board"`
	Generation    int        `json:"generation"`
	NewBoard      bool       `json:"new_board"`
	Waiting       bool       `json:"waiting"`
	Message       string     `json:"message,omitempty"`
	TimeRemaining int        `json:"time_remaining"`
}

// FinishResult 玩家结束游戏的结果
type FinishResult struct {
	FinalScore         int  `json:"final_score"`
	AllPlayersFinished bool `json:"all_players_finished"`
}

// NewBoardResult answers a new-board request. Board is nil when the player
// still has moves on the current board.
type NewBoardResult struct {
	Board         *board.Grid `json:"new_board"`
	Generation    int         `json:"generation"`
	Waiting       bool        `json:"waiting"`
	Score         int         `json:"score"`
	TimeRemaining int         `json:"time_remaining"`
	Message       string      `json:"message"`
}
