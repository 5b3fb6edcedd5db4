// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/fruitbox/models"
)

// Store 持久化接口。棋盘、玩家快照和移动记录只追加；删除房间时级联删除。
type Store interface {
	SaveRoom(room *models.GormRoom) error
	DeleteRoom(roomCode string) error
	SavePlayer(player *models.GormPlayer) error
	SaveBoard(board *models.GormBoard) error
	SavePlayerState(state *models.GormPlayerState) error
	AppendMove(move *models.GormMove) error

	LoadRoom(roomCode string) (*models.GormRoom, error)
	LoadBoard(roomCode string, generation int) (*models.GormBoard, error)
	LatestPlayerState(roomCode string, playerID int64) (*models.GormPlayerState, error)
	Moves(roomCode string) ([]models.GormMove, error)

	// MaxIDs 返回已存储的最大房间 ID 和玩家 ID，空库为 0
	MaxIDs() (roomID, playerID int64, err error)
	// RoomCodes 返回所有已存储的房间码
	RoomCodes() ([]string, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
