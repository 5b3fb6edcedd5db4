package state

import (
	"encoding/json"

	"github.com/wfunc/fruitbox/logger"
	"github.com/wfunc/fruitbox/models"
	"github.com/wfunc/fruitbox/network"
)

// WaitingState 等待玩家加入
type WaitingState struct {
	RoomStateBase
}

// NewWaitingState creates a new waiting state.
func NewWaitingState(room RoomContext) *WaitingState {
	return &WaitingState{RoomStateBase{ID: StatusWaiting, Room: room}}
}

func (s *WaitingState) OnEnter() {
	s.Room.SetStatus(s.ID)
}

// PlayingState 游戏进行状态
type PlayingState struct {
	RoomStateBase
}

// NewPlayingState creates a new playing state.
func NewPlayingState(room RoomContext) *PlayingState {
	return &PlayingState{RoomStateBase{ID: StatusPlaying, Room: room}}
}

// OnEnter announces the start to every subscriber.
func (s *PlayingState) OnEnter() {
	s.Room.SetStatus(s.ID)
	logger.Log.Infof("Room %s started playing", s.Room.GetCode())
	s.notify(models.EventGameStarted, network.MsgTypeGameStart)
}

// FinishedState 游戏结束状态
type FinishedState struct {
	RoomStateBase
}

// NewFinishedState creates a new finished state.
func NewFinishedState(room RoomContext) *FinishedState {
	return &FinishedState{RoomStateBase{ID: StatusFinished, Room: room}}
}

func (s *FinishedState) OnEnter() {
	s.Room.SetStatus(s.ID)
	logger.Log.Infof("Room %s finished", s.Room.GetCode())
	s.notify(models.EventGameFinished, network.MsgTypeGameEnd)
}

func (s *RoomStateBase) notify(eventType string, msgID uint16) {
	status := s.Room.Describe()
	event := models.Event{
		Type:     eventType,
		RoomCode: status.RoomCode,
		Status:   s.ID,
		Players:  status.Players,
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorf("Error marshalling %s event: %v", eventType, err)
		return
	}
	if err := s.Room.Broadcast(msgID, data); err != nil {
		logger.Log.Warnf("Broadcast %s to room %s failed: %v", eventType, status.RoomCode, err)
	}
}

// NewRoomMachine wires the forward-only room lifecycle:
// waiting -> playing (needs two players), waiting -> finished, playing -> finished.
func NewRoomMachine(room RoomContext) *BaseStateMachine {
	waiting := NewWaitingState(room)
	playing := NewPlayingState(room)
	finished := NewFinishedState(room)

	sm := NewBaseStateMachine(waiting)
	sm.AddTransition(waiting, playing, room.CanStart)
	sm.AddTransition(waiting, finished, nil)
	sm.AddTransition(playing, finished, nil)
	return sm
}
