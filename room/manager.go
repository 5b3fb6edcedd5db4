package room

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/fruitbox/models"
)

const (
	codeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Manager 管理所有房间
type Manager struct {
	rooms        map[string]*Room // room code -> room
	names        map[string]string
	broadcaster  Broadcaster
	rng          *rand.Rand
	nextRoomID   int64
	nextPlayerID int64
	mutex        sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(broadcaster Broadcaster) *Manager {
	return &Manager{
		rooms:       make(map[string]*Room),
		names:       make(map[string]string),
		broadcaster: broadcaster,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRoom 创建一个新房间并添加到管理器
func (m *Manager) CreateRoom(name string, maxPlayers int) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.ErrInvalidName
	}
	if maxPlayers < MinPlayers || maxPlayers > MaxPlayers {
		return nil, models.ErrInvalidMaxPlayers
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := strings.ToLower(name)
	if _, taken := m.names[key]; taken {
		return nil, fmt.Errorf("%w: %s", models.ErrRoomNameTaken, name)
	}

	code := m.newCode()
	m.nextRoomID++
	room := NewRoom(m.nextRoomID, code, name, maxPlayers, m.broadcaster)
	m.rooms[code] = room
	m.names[key] = code
	return room, nil
}

// newCode draws codes until one is unused. Caller holds the lock.
func (m *Manager) newCode() string {
	buf := make([]byte, codeLength)
	for {
		for i := range buf {
			buf[i] = codeAlphabet[m.rng.Intn(len(codeAlphabet))]
		}
		if _, exists := m.rooms[string(buf)]; !exists {
			return string(buf)
		}
	}
}

// Join adds a new player named name to the room with the given code.
func (m *Manager) Join(code, name string) (*Room, *Player, error) {
	room, exists := m.GetRoom(code)
	if !exists {
		return nil, nil, fmt.Errorf("%w: %s", models.ErrRoomNotFound, code)
	}

	m.mutex.Lock()
	m.nextPlayerID++
	player := &Player{ID: m.nextPlayerID, Name: name}
	m.mutex.Unlock()

	if err := room.AddPlayer(player); err != nil {
		return nil, nil, err
	}
	return room, player, nil
}

// SeedIDs makes the next room and player ids start above the given ones.
// Ids never move backwards.
func (m *Manager) SeedIDs(roomID, playerID int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if roomID > m.nextRoomID {
		m.nextRoomID = roomID
	}
	if playerID > m.nextPlayerID {
		m.nextPlayerID = playerID
	}
}

// RemoveRoom 从管理器中移除一个房间
func (m *Manager) RemoveRoom(code string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[code]; exists {
		delete(m.names, strings.ToLower(room.Name))
		delete(m.rooms, code)
	}
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[strings.ToUpper(code)]
	return room, exists
}

// List returns all rooms, newest first.
func (m *Manager) List() []*Room {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mutex.RUnlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID > rooms[j].ID })
	return rooms
}

// Count returns the number of open rooms.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Idle lists the codes of rooms that qualify for cleanup at now.
func (m *Manager) Idle(now time.Time, timeout time.Duration) []string {
	var codes []string
	for _, room := range m.List() {
		if room.Idle(now, timeout) {
			codes = append(codes, room.Code)
		}
	}
	return codes
}
