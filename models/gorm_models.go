// models/gorm_models.go
package models

import (
	"time"
)

// GormRoom 房间模型
type GormRoom struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false"`
	RoomCode   string    `gorm:"size:6;uniqueIndex;not null"`
	Name       string    `gorm:"uniqueIndex;not null"`
	MaxPlayers int       `gorm:"not null"`
	Status     string    `gorm:"not null;default:waiting"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (GormRoom) TableName() string { return "game_rooms" }

// GormPlayer 玩家模型
type GormPlayer struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false"`
	RoomID    int64     `gorm:"index;not null"`
	RoomCode  string    `gorm:"size:6;index;not null"`
	Name      string    `gorm:"not null"`
	Score     int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (GormPlayer) TableName() string { return "players" }

// GormBoard 一代棋盘配置，(room_code, generation) 唯一
type GormBoard struct {
	ID         uint      `gorm:"primaryKey"`
	RoomCode   string    `gorm:"size:6;uniqueIndex:idx_board_generation;not null"`
	Generation int       `gorm:"uniqueIndex:idx_board_generation;not null"`
	Cells      string    `gorm:"type:text;not null"` // JSON 10x10
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (GormBoard) TableName() string { return "game_boards" }

// GormPlayerState 玩家棋盘快照，只追加，最新的为当前状态
type GormPlayerState struct {
	ID            uint      `gorm:"primaryKey"`
	PlayerID      int64     `gorm:"index:idx_player_state;not null"`
	RoomCode      string    `gorm:"size:6;index:idx_player_state;not null"`
	Generation    int       `gorm:"index:idx_player_state;not null"`
	Sequence      int64     `gorm:"not null"`
	Collected     string    `gorm:"type:text;not null"` // JSON [[row,col],...]
	Score         int       `gorm:"not null;default:0"`
	TimeRemaining int       `gorm:"not null"`
	Finished      bool      `gorm:"default:false"`
	FinalScore    int       `gorm:"default:0"`
	NeedsNewBoard bool      `gorm:"default:false"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (GormPlayerState) TableName() string { return "player_game_states" }

// GormMove 移动审计记录，只追加
type GormMove struct {
	ID           uint      `gorm:"primaryKey"`
	RoomID       int64     `gorm:"index;not null"`
	RoomCode     string    `gorm:"size:6;index;not null"`
	PlayerID     int64     `gorm:"index;not null"`
	StartRow     int       `gorm:"not null"`
	StartCol     int       `gorm:"not null"`
	EndRow       int       `gorm:"not null"`
	EndCol       int       `gorm:"not null"`
	PointsEarned int       `gorm:"not null;default:0"`
	BoardState   string    `gorm:"type:text"` // JSON of the resulting visible board
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (GormMove) TableName() string { return "game_moves" }
