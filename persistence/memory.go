// persistence/memory.go
package persistence

import (
	"sort"
	"sync"
	"time"

	"github.com/wfunc/fruitbox/models"
)

// Memory 进程内实现，用于测试和 memory 驱动
type Memory struct {
	rooms   map[string]models.GormRoom
	players map[int64]models.GormPlayer
	boards  map[string]map[int]models.GormBoard
	states  []models.GormPlayerState
	moves   []models.GormMove
	nextID  uint
	mutex   sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{
		rooms:   make(map[string]models.GormRoom),
		players: make(map[int64]models.GormPlayer),
		boards:  make(map[string]map[int]models.GormBoard),
		nextID:  1,
	}
}

func (m *Memory) id() uint {
	id := m.nextID
	m.nextID++
	return id
}

func (m *Memory) SaveRoom(room *models.GormRoom) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	if existing, ok := m.rooms[room.RoomCode]; ok {
		existing.Status = room.Status
		existing.UpdatedAt = now
		m.rooms[room.RoomCode] = existing
		return nil
	}
	rec := *room
	rec.CreatedAt, rec.UpdatedAt = now, now
	m.rooms[room.RoomCode] = rec
	return nil
}

func (m *Memory) DeleteRoom(roomCode string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.rooms, roomCode)
	delete(m.boards, roomCode)
	for id, p := range m.players {
		if p.RoomCode == roomCode {
			delete(m.players, id)
		}
	}

	states := m.states[:0]
	for _, s := range m.states {
		if s.RoomCode != roomCode {
			states = append(states, s)
		}
	}
	m.states = states

	moves := m.moves[:0]
	for _, mv := range m.moves {
		if mv.RoomCode != roomCode {
			moves = append(moves, mv)
		}
	}
	m.moves = moves
	return nil
}

func (m *Memory) SavePlayer(player *models.GormPlayer) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	if existing, ok := m.players[player.ID]; ok {
		existing.Score = player.Score
		existing.UpdatedAt = now
		m.players[player.ID] = existing
		return nil
	}
	rec := *player
	rec.CreatedAt, rec.UpdatedAt = now, now
	m.players[player.ID] = rec
	return nil
}

func (m *Memory) SaveBoard(board *models.GormBoard) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	gens, ok := m.boards[board.RoomCode]
	if !ok {
		gens = make(map[int]models.GormBoard)
		m.boards[board.RoomCode] = gens
	}
	if _, exists := gens[board.Generation]; exists {
		return nil
	}
	rec := *board
	rec.ID = m.id()
	rec.CreatedAt = time.Now()
	gens[board.Generation] = rec
	return nil
}

func (m *Memory) SavePlayerState(state *models.GormPlayerState) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rec := *state
	rec.ID = m.id()
	rec.CreatedAt = time.Now()
	m.states = append(m.states, rec)
	return nil
}

func (m *Memory) AppendMove(move *models.GormMove) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rec := *move
	rec.ID = m.id()
	rec.CreatedAt = time.Now()
	m.moves = append(m.moves, rec)
	return nil
}

func (m *Memory) LoadRoom(roomCode string) (*models.GormRoom, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, ok := m.rooms[roomCode]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &room, nil
}

func (m *Memory) LoadBoard(roomCode string, generation int) (*models.GormBoard, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	board, ok := m.boards[roomCode][generation]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &board, nil
}

func (m *Memory) LatestPlayerState(roomCode string, playerID int64) (*models.GormPlayerState, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var latest *models.GormPlayerState
	for i := range m.states {
		s := &m.states[i]
		if s.RoomCode != roomCode || s.PlayerID != playerID {
			continue
		}
		if latest == nil || s.Sequence > latest.Sequence ||
			(s.Sequence == latest.Sequence && s.ID > latest.ID) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrRecordNotFound
	}
	out := *latest
	return &out, nil
}

func (m *Memory) Moves(roomCode string) ([]models.GormMove, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []models.GormMove
	for _, mv := range m.moves {
		if mv.RoomCode == roomCode {
			out = append(out, mv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Players 返回房间内的玩家记录，按 ID 排序
func (m *Memory) Players(roomCode string) []models.GormPlayer {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []models.GormPlayer
	for _, p := range m.players {
		if p.RoomCode == roomCode {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) MaxIDs() (roomID, playerID int64, err error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, r := range m.rooms {
		if r.ID > roomID {
			roomID = r.ID
		}
	}
	for id := range m.players {
		if id > playerID {
			playerID = id
		}
	}
	return roomID, playerID, nil
}

func (m *Memory) RoomCodes() ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	codes := make([]string, 0, len(m.rooms))
	for code := range m.rooms {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

func (m *Memory) Close() error {
	return nil
}
