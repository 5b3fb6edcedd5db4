// room/room.go
package room

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/fruitbox/models"
	"github.com/wfunc/fruitbox/state"
)

const (
	MinPlayers   = 1
	MaxPlayers   = 4
	StartPlayers = 2
)

// palette 玩家颜色，按 id 取模
var palette = [...]string{"#3b82f6", "#10b981", "#f59e0b", "#ef4444"}

// Player 是房间中的一个玩家
type Player struct {
	ID        int64
	RoomID    int64
	Name      string
	Score     int
	JoinedAt  time.Time
	UpdatedAt time.Time
}

// Color 返回玩家的显示颜色
func (p *Player) Color() string {
	return palette[p.ID%int64(len(palette))]
}

// View 返回玩家的展示信息
func (p *Player) View() models.PlayerView {
	return models.PlayerView{ID: p.ID, Name: p.Name, Score: p.Score, Color: p.Color()}
}

// Room 是游戏房间的核心结构
type Room struct {
	ID           int64
	Code         string
	Name         string
	MaxPlayers   int
	CreatedAt    time.Time
	StateMachine state.StateMachine
	players      []*Player // join order
	status       string
	updatedAt    time.Time
	lastMoveAt   time.Time
	broadcaster  Broadcaster
	statusMutex  sync.RWMutex
	playerMutex  sync.RWMutex
}

// NewRoom 创建一个新房间
func NewRoom(id int64, code, name string, maxPlayers int, broadcaster Broadcaster) *Room {
	now := time.Now()
	room := &Room{
		ID:          id,
		Code:        code,
		Name:        name,
		MaxPlayers:  maxPlayers,
		CreatedAt:   now,
		updatedAt:   now,
		broadcaster: broadcaster,
	}

	// 初始化状态机，将房间自身(room)作为上下文传入
	room.StateMachine = state.NewRoomMachine(room)
	return room
}

// --- 实现 state.RoomContext 接口 ---

// GetCode 返回房间码
func (r *Room) GetCode() string {
	return r.Code
}

// CanStart 至少两名玩家才能开始
func (r *Room) CanStart() bool {
	return r.PlayerCount() >= StartPlayers
}

// SetStatus 设置房间的业务状态，由状态机进入新状态时调用
func (r *Room) SetStatus(status string) {
	r.statusMutex.Lock()
	defer r.statusMutex.Unlock()
	r.status = status
	r.updatedAt = time.Now()
}

// Describe 返回房间状态快照
func (r *Room) Describe() models.RoomStatus {
	players := r.Players()
	views := make([]models.PlayerView, 0, len(players))
	for _, p := range players {
		views = append(views, p.View())
	}
	return models.RoomStatus{
		RoomCode:    r.Code,
		Name:        r.Name,
		Status:      r.Status(),
		PlayerCount: len(players),
		MaxPlayers:  r.MaxPlayers,
		CanStart:    len(players) >= StartPlayers,
		Players:     views,
	}
}

// Broadcast sends a message to all subscribers of the room.
func (r *Room) Broadcast(msgID uint16, data []byte) error {
	if r.broadcaster == nil {
		return nil
	}
	return r.broadcaster.BroadcastToRoom(r.Code, msgID, data)
}

// --- 房间核心逻辑 ---

// Status 获取房间的业务状态
func (r *Room) Status() string {
	r.statusMutex.RLock()
	defer r.statusMutex.RUnlock()
	return r.status
}

// Full 房间是否已满
func (r *Room) Full() bool {
	return r.PlayerCount() >= r.MaxPlayers
}

// AddPlayer 添加一个玩家到房间
func (r *Room) AddPlayer(p *Player) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return models.ErrInvalidName
	}

	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	if len(r.players) >= r.MaxPlayers {
		return fmt.Errorf("%w: %s", models.ErrRoomFull, r.Code)
	}
	for _, existing := range r.players {
		if strings.EqualFold(existing.Name, name) {
			return fmt.Errorf("%w: %s", models.ErrPlayerNameTaken, name)
		}
	}

	now := time.Now()
	p.Name = name
	p.RoomID = r.ID
	p.JoinedAt = now
	p.UpdatedAt = now
	r.players = append(r.players, p)
	return nil
}

// GetPlayer 获取单个玩家
func (r *Room) GetPlayer(playerID int64) (*Player, bool) {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	for _, p := range r.players {
		if p.ID == playerID {
			return p, true
		}
	}
	return nil, false
}

// Players returns copies of the players in join order (thread-safe).
func (r *Room) Players() []Player {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	players := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, *p)
	}
	return players
}

// PlayerCount 当前玩家数量
func (r *Room) PlayerCount() int {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return len(r.players)
}

// UpdateScore mirrors a player's score and stamps the move time.
func (r *Room) UpdateScore(playerID int64, score int) (Player, bool) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	for _, p := range r.players {
		if p.ID == playerID {
			now := time.Now()
			p.Score = score
			p.UpdatedAt = now
			r.lastMoveAt = now
			return *p, true
		}
	}
	return Player{}, false
}

// Start moves the room from waiting to playing.
func (r *Room) Start() error {
	if r.Status() == state.StatusPlaying {
		return nil
	}
	if !r.CanStart() {
		return fmt.Errorf("%w: %s", models.ErrRoomNotStartable, r.Code)
	}
	if err := r.StateMachine.ChangeState(state.NewPlayingState(r)); err != nil {
		return fmt.Errorf("%w: %v", models.ErrRoomNotStartable, err)
	}
	return nil
}

// Finish moves the room to finished. Finishing twice is a no-op.
func (r *Room) Finish() error {
	if r.Status() == state.StatusFinished {
		return nil
	}
	return r.StateMachine.ChangeState(state.NewFinishedState(r))
}

// LastActivity is the latest of the room's own update, any player update
// and the latest move.
func (r *Room) LastActivity() time.Time {
	r.statusMutex.RLock()
	last := r.updatedAt
	r.statusMutex.RUnlock()

	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	if r.lastMoveAt.After(last) {
		last = r.lastMoveAt
	}
	for _, p := range r.players {
		if p.UpdatedAt.After(last) {
			last = p.UpdatedAt
		}
	}
	return last
}

// Idle reports whether the room qualifies for cleanup at now.
func (r *Room) Idle(now time.Time, timeout time.Duration) bool {
	return r.PlayerCount() == 0 || now.Sub(r.LastActivity()) > timeout
}
