// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/fruitbox/logger"
	"github.com/wfunc/fruitbox/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomCode string, msgID uint16, data []byte) error
	SendToPlayer(roomCode string, playerID int64, msgID uint16, data []byte) error
}

// 基于房间订阅的广播器
type RoomBroadcaster struct {
	sessionManager *session.Manager
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		sessionManager: sessionManager,
	}
}

// BroadcastToRoom 发送给订阅了房间的所有会话，单个会话失败不影响其他会话
func (b *RoomBroadcaster) BroadcastToRoom(roomCode string, msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.GetByRoom(roomCode) {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnf("broadcast to session %s failed: %v", s.ID, err)
			continue
		}
	}
	return nil
}

func (b *RoomBroadcaster) SendToPlayer(roomCode string, playerID int64, msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.GetByPlayer(roomCode, playerID) {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnf("send to player %d failed: %v", playerID, err)
			continue
		}
	}
	return nil
}
