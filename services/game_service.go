// services/game_service.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wfunc/fruitbox/board"
	"github.com/wfunc/fruitbox/broadcast"
	"github.com/wfunc/fruitbox/coordinator"
	"github.com/wfunc/fruitbox/logger"
	"github.com/wfunc/fruitbox/models"
	"github.com/wfunc/fruitbox/monitor"
	"github.com/wfunc/fruitbox/network"
	"github.com/wfunc/fruitbox/persistence"
	"github.com/wfunc/fruitbox/room"
	"github.com/wfunc/fruitbox/state"
	"github.com/wfunc/fruitbox/timer"
)

// DefaultIdleTimeout 房间无活动多久后被回收
const DefaultIdleTimeout = 5 * time.Minute

const (
	msgInvalidSelection = "Invalid selection - must sum to 10"
	msgMovesAvailable   = "You still have moves available"
	msgBoardCreated     = "New board generated, waiting for other player"
	msgBoardForAll      = "New board generated for all players"
	msgBoardAdopted     = "New board available"
)

// GameService 组合房间、棋盘协调器、持久化和广播，对外提供全部游戏操作
type GameService struct {
	rooms       *room.Manager
	coordinator *coordinator.Coordinator
	store       persistence.Store
	broadcaster broadcast.Broadcaster
	monitor     *monitor.Monitor
	idleTimeout time.Duration
	now         func() time.Time
	onRemoved   []func(roomCode string)
}

// Option configures a GameService.
type Option func(*GameService)

func WithIdleTimeout(d time.Duration) Option {
	return func(s *GameService) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithClock replaces time.Now for idle checks.
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

// OnRoomRemoved registers a callback run after a room was reclaimed.
func OnRoomRemoved(fn func(roomCode string)) Option {
	return func(s *GameService) { s.onRemoved = append(s.onRemoved, fn) }
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToRoom(string, uint16, []byte) error     { return nil }
func (nopBroadcaster) SendToPlayer(string, int64, uint16, []byte) error { return nil }

func NewGameService(store persistence.Store, broadcaster broadcast.Broadcaster, mon *monitor.Monitor, gen coordinator.Generator, opts ...Option) *GameService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	s := &GameService{
		store:       store,
		broadcaster: broadcaster,
		monitor:     mon,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rooms = room.NewRoomManager(broadcaster)
	s.coordinator = coordinator.New(gen, coordinator.WithRecorder(&storeRecorder{store: store, monitor: mon}))

	// 重启后 ID 从库里已有的最大值之后继续
	if roomID, playerID, err := store.MaxIDs(); err != nil {
		logger.Log.Errorf("Error reading stored ids: %v", err)
	} else {
		s.rooms.SeedIDs(roomID, playerID)
	}
	return s
}

// CreateRoom 创建房间并生成第一代棋盘
func (s *GameService) CreateRoom(name string, maxPlayers int) (models.RoomStatus, error) {
	s.Sweep()

	r, err := s.rooms.CreateRoom(name, maxPlayers)
	if err != nil {
		return models.RoomStatus{}, err
	}
	s.saveRoom(r)
	s.coordinator.OpenRoom(r.Code)
	s.monitor.SetActiveRooms(s.rooms.Count())

	logger.Log.Infof("Room %s (%s) created, max players %d", r.Code, r.Name, r.MaxPlayers)
	return s.describe(r), nil
}

// ListRooms 大厅列表，新建的在前
func (s *GameService) ListRooms() []models.RoomStatus {
	s.Sweep()

	rooms := s.rooms.List()
	out := make([]models.RoomStatus, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, s.describe(r))
	}
	return out
}

// JoinRoom adds a player and seeds it on the room's latest board.
func (s *GameService) JoinRoom(roomCode, playerName string) (int64, error) {
	r, err := s.room(roomCode)
	if err != nil {
		return 0, err
	}
	if r.Status() == state.StatusFinished {
		return 0, fmt.Errorf("%w: %s", models.ErrGameFinished, r.Code)
	}

	r, p, err := s.rooms.Join(r.Code, playerName)
	if err != nil {
		return 0, err
	}
	if _, _, err := s.coordinator.Join(r.Code, p.ID); err != nil {
		return 0, err
	}

	if err := s.store.SavePlayer(&models.GormPlayer{ID: p.ID, RoomID: r.ID, RoomCode: r.Code, Name: p.Name}); err != nil {
		logger.Log.Errorf("Error saving player %d: %v", p.ID, err)
	}

	view := p.View()
	s.publish(r.Code, network.MsgTypePlayerJoined, models.Event{
		Type:     models.EventPlayerJoined,
		RoomCode: r.Code,
		Status:   r.Status(),
		PlayerID: p.ID,
		Player:   &view,
		Players:  r.Describe().Players,
	})
	logger.Log.Infof("Player %d (%s) joined room %s", p.ID, p.Name, r.Code)
	return p.ID, nil
}

// GetVisibleBoard 返回玩家当前看到的棋盘，已收集的格子为 0
func (s *GameService) GetVisibleBoard(roomCode string, playerID int64) (models.BoardView, error) {
	r, err := s.room(roomCode)
	if err != nil {
		return models.BoardView{}, err
	}
	st, cfg, err := s.coordinator.Snapshot(r.Code, playerID)
	if err != nil {
		return models.BoardView{}, err
	}
	return models.BoardView{
		RoomCode:      r.Code,
		PlayerID:      playerID,
		Board:         st.VisibleBoard(cfg),
		Generation:    st.Generation,
		Score:         st.Score,
		TimeRemaining: st.TimeRemaining,
		Finished:      st.Finished,
	}, nil
}

// SubmitSelection validates and collects a rectangle. An invalid selection
// is not an error: it is answered with Accepted=false and announced to the
// room.
func (s *GameService) SubmitSelection(roomCode string, playerID int64, rect board.Rectangle) (models.SelectionResult, error) {
	start := time.Now()
	defer func() { s.monitor.ObserveMoveLatency(time.Since(start)) }()

	r, err := s.room(roomCode)
	if err != nil {
		return models.SelectionResult{}, err
	}
	if r.Status() == state.StatusFinished {
		return models.SelectionResult{}, fmt.Errorf("%w: %s", models.ErrGameFinished, r.Code)
	}

	move, err := s.coordinator.Collect(r.Code, playerID, rect)
	if errors.Is(err, models.ErrInvalidSelection) {
		s.monitor.IncMove(monitor.ResultInvalid)
		s.publish(r.Code, network.MsgTypeInvalidMove, models.Event{
			Type:     models.EventInvalidMove,
			RoomCode: r.Code,
			PlayerID: playerID,
			Move:     &rect,
			Message:  msgInvalidSelection,
		})
		return models.SelectionResult{
			Accepted:      false,
			Score:         move.Before.Score,
			Board:         move.Before.VisibleBoard(move.Board),
			Generation:    move.Before.Generation,
			Message:       msgInvalidSelection,
			TimeRemaining: move.Before.TimeRemaining,
		}, nil
	}
	if err != nil {
		return models.SelectionResult{}, err
	}

	s.monitor.IncMove(monitor.ResultAccepted)
	after := move.After
	player := s.updateScore(r, playerID, after.Score)

	rec, err := persistence.MoveRecord(r.ID, r.Code, playerID, rect, move.Points, after.VisibleBoard(move.Board))
	if err == nil {
		err = s.store.AppendMove(rec)
	}
	if err != nil {
		logger.Log.Errorf("Error saving move of player %d in room %s: %v", playerID, r.Code, err)
	}

	event := models.Event{
		Type:       models.EventMoveMade,
		RoomCode:   r.Code,
		PlayerID:   playerID,
		Move:       &rect,
		Points:     move.Points,
		Generation: after.Generation,
	}
	if player != nil {
		view := player.View()
		event.Player = &view
	}
	s.publish(r.Code, network.MsgTypeMoveMade, event)

	result := models.SelectionResult{
		Accepted:      true,
		PointsEarned:  move.Points,
		Score:         after.Score,
		Board:         after.VisibleBoard(move.Board),
		Generation:    after.Generation,
		TimeRemaining: after.TimeRemaining,
	}
	if move.Renewal != nil {
		renewal := move.Renewal
		result.Board = renewal.State.VisibleBoard(renewal.Board)
		result.Generation = renewal.State.Generation
		result.NewBoard = true
		result.Waiting = renewal.Waiting
		result.Message = s.renewalMessage(r.Code, playerID, renewal)
	}
	return result, nil
}

// ReportFinished 玩家时间到或主动结束。所有玩家结束后房间进入 finished。
func (s *GameService) ReportFinished(roomCode string, playerID int64, finalScore int) (models.FinishResult, error) {
	r, err := s.room(roomCode)
	if err != nil {
		return models.FinishResult{}, err
	}

	st, allFinished, err := s.coordinator.Finish(r.Code, playerID)
	if err != nil {
		return models.FinishResult{}, err
	}
	if finalScore != st.FinalScore {
		logger.Log.Warnf("Player %d reported score %d, server holds %d", playerID, finalScore, st.FinalScore)
	}
	s.updateScore(r, playerID, st.FinalScore)

	if allFinished {
		if err := r.Finish(); err != nil {
			logger.Log.Warnf("Room %s could not finish: %v", r.Code, err)
		}
		s.saveRoom(r)
	}
	return models.FinishResult{FinalScore: st.FinalScore, AllPlayersFinished: allFinished}, nil
}

// RequestNewBoard runs the new-board negotiation for the player.
func (s *GameService) RequestNewBoard(roomCode string, playerID int64) (models.NewBoardResult, error) {
	r, err := s.room(roomCode)
	if err != nil {
		return models.NewBoardResult{}, err
	}

	renewal, err := s.coordinator.RequestNewBoard(r.Code, playerID)
	if err != nil {
		return models.NewBoardResult{}, err
	}

	result := models.NewBoardResult{
		Generation:    renewal.State.Generation,
		Waiting:       renewal.Waiting,
		Score:         renewal.State.Score,
		TimeRemaining: renewal.State.TimeRemaining,
		Message:       msgMovesAvailable,
	}
	if renewal.Board != nil {
		grid := renewal.State.VisibleBoard(renewal.Board)
		result.Board = &grid
		result.Message = s.renewalMessage(r.Code, playerID, &renewal)
	}
	return result, nil
}

// renewalMessage pushes the renewed board to every session of the player,
// announces a freshly built generation and picks the reply text.
func (s *GameService) renewalMessage(roomCode string, playerID int64, renewal *coordinator.Renewal) string {
	s.pushBoard(roomCode, playerID, renewal)
	if !renewal.Created {
		return msgBoardAdopted
	}
	s.publish(roomCode, network.MsgTypeBoardRenewed, models.Event{
		Type:       models.EventBoardRegenerated,
		RoomCode:   roomCode,
		PlayerID:   playerID,
		Generation: renewal.Board.Generation,
	})
	if renewal.Waiting {
		return msgBoardCreated
	}
	return msgBoardForAll
}

// SyncTime lowers the server-held countdown of a player.
func (s *GameService) SyncTime(roomCode string, playerID int64, seconds int) (models.BoardView, error) {
	r, err := s.room(roomCode)
	if err != nil {
		return models.BoardView{}, err
	}
	if _, err := s.coordinator.SyncTime(r.Code, playerID, seconds); err != nil {
		return models.BoardView{}, err
	}
	return s.GetVisibleBoard(r.Code, playerID)
}

// GetRoomStatus 房间状态，包括当前棋盘代数和协商阶段
func (s *GameService) GetRoomStatus(roomCode string) (models.RoomStatus, error) {
	r, err := s.room(roomCode)
	if err != nil {
		return models.RoomStatus{}, err
	}
	return s.describe(r), nil
}

// StartGame 至少两名玩家时开始游戏
func (s *GameService) StartGame(roomCode string) (models.RoomStatus, error) {
	r, err := s.room(roomCode)
	if err != nil {
		return models.RoomStatus{}, err
	}
	if err := r.Start(); err != nil {
		return models.RoomStatus{}, err
	}
	s.saveRoom(r)
	return s.describe(r), nil
}

// CleanupOptions widens a manual cleanup beyond idle rooms.
type CleanupOptions struct {
	DeleteAll bool
	Name      string
}

// Cleanup removes idle rooms plus whatever opts selects and returns the
// number of rooms removed.
func (s *GameService) Cleanup(opts CleanupOptions) int {
	removed := len(s.Sweep())
	for _, r := range s.rooms.List() {
		if opts.DeleteAll || (opts.Name != "" && strings.EqualFold(r.Name, strings.TrimSpace(opts.Name))) {
			s.removeRoom(r.Code)
			removed++
		}
	}
	s.monitor.SetActiveRooms(s.rooms.Count())
	return removed
}

// Sweep reclaims rooms with no players or no activity for the idle
// timeout, plus stored rooms no longer held in memory (left over from an
// earlier process, so they have no players). It returns the removed room
// codes.
func (s *GameService) Sweep() []string {
	codes := s.rooms.Idle(s.now(), s.idleTimeout)
	for _, code := range codes {
		s.removeRoom(code)
	}
	codes = append(codes, s.purgeOrphans()...)
	if len(codes) > 0 {
		s.monitor.AddRoomsReclaimed(len(codes))
		s.monitor.SetActiveRooms(s.rooms.Count())
		logger.Log.Infof("Cleaned up %d rooms", len(codes))
	}
	return codes
}

// StartSweeper runs Sweep every interval on tm.
func (s *GameService) StartSweeper(tm *timer.TimerManager, interval time.Duration) int64 {
	return tm.AddTimer("room-sweeper", interval, interval, func() { s.Sweep() })
}

// purgeOrphans deletes stored rooms that no live room owns.
func (s *GameService) purgeOrphans() []string {
	stored, err := s.store.RoomCodes()
	if err != nil {
		logger.Log.Errorf("Error listing stored rooms: %v", err)
		return nil
	}
	var purged []string
	for _, code := range stored {
		if _, live := s.rooms.GetRoom(code); live {
			continue
		}
		if err := s.store.DeleteRoom(code); err != nil {
			logger.Log.Errorf("Error deleting stale room %s: %v", code, err)
			continue
		}
		purged = append(purged, code)
	}
	return purged
}

func (s *GameService) removeRoom(code string) {
	s.rooms.RemoveRoom(code)
	s.coordinator.CloseRoom(code)
	if err := s.store.DeleteRoom(code); err != nil {
		logger.Log.Errorf("Error deleting room %s: %v", code, err)
	}
	for _, fn := range s.onRemoved {
		fn(code)
	}
}

func (s *GameService) room(code string) (*room.Room, error) {
	r, exists := s.rooms.GetRoom(code)
	if !exists {
		return nil, fmt.Errorf("%w: %s", models.ErrRoomNotFound, code)
	}
	return r, nil
}

func (s *GameService) describe(r *room.Room) models.RoomStatus {
	status := r.Describe()
	if cfg, err := s.coordinator.Latest(r.Code); err == nil {
		status.Generation = cfg.Generation
	}
	if phase, err := s.coordinator.Phase(r.Code); err == nil {
		status.Phase = phase.String()
	}
	return status
}

func (s *GameService) updateScore(r *room.Room, playerID int64, score int) *room.Player {
	p, ok := r.UpdateScore(playerID, score)
	if !ok {
		return nil
	}
	if err := s.store.SavePlayer(&models.GormPlayer{ID: p.ID, RoomID: r.ID, RoomCode: r.Code, Name: p.Name, Score: p.Score}); err != nil {
		logger.Log.Errorf("Error saving score of player %d: %v", p.ID, err)
	}
	return &p
}

func (s *GameService) saveRoom(r *room.Room) {
	rec := &models.GormRoom{ID: r.ID, RoomCode: r.Code, Name: r.Name, MaxPlayers: r.MaxPlayers, Status: r.Status()}
	if err := s.store.SaveRoom(rec); err != nil {
		logger.Log.Errorf("Error saving room %s: %v", r.Code, err)
	}
}

// pushBoard sends the player's renewed view to all of its own sessions.
func (s *GameService) pushBoard(roomCode string, playerID int64, renewal *coordinator.Renewal) {
	st := renewal.State
	data, err := json.Marshal(models.BoardView{
		RoomCode:      roomCode,
		PlayerID:      playerID,
		Board:         st.VisibleBoard(renewal.Board),
		Generation:    st.Generation,
		Score:         st.Score,
		TimeRemaining: st.TimeRemaining,
		Finished:      st.Finished,
	})
	if err != nil {
		logger.Log.Errorf("Error marshalling board of player %d: %v", playerID, err)
		return
	}
	if err := s.broadcaster.SendToPlayer(roomCode, playerID, network.MsgTypePlayerState, data); err != nil {
		logger.Log.Warnf("Push board to player %d in room %s failed: %v", playerID, roomCode, err)
	}
}

func (s *GameService) publish(roomCode string, msgID uint16, event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorf("Error marshalling %s event: %v", event.Type, err)
		return
	}
	if err := s.broadcaster.BroadcastToRoom(roomCode, msgID, data); err != nil {
		logger.Log.Warnf("Broadcast %s to room %s failed: %v", event.Type, roomCode, err)
	}
}
