// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/fruitbox/network"
)

// Session is one websocket connection. It is bound to a room after a
// join or subscribe; PlayerID stays 0 for spectators.
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	roomCode   string
	playerID   int64
	lastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
	}
}

// Bind attaches the session to a room and optionally a player. A zero
// playerID keeps the current player only while the room stays the same.
func (s *Session) Bind(roomCode string, playerID int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if roomCode != s.roomCode {
		s.playerID = 0
	}
	s.roomCode = roomCode
	if playerID != 0 {
		s.playerID = playerID
	}
}

func (s *Session) RoomCode() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomCode
}

func (s *Session) PlayerID() int64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.playerID
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// GetByRoom returns every session subscribed to roomCode.
func (m *Manager) GetByRoom(roomCode string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.RoomCode() == roomCode {
			result = append(result, session)
		}
	}
	return result
}

// GetByPlayer returns the sessions of one player in a room.
func (m *Manager) GetByPlayer(roomCode string, playerID int64) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.RoomCode() == roomCode && session.PlayerID() == playerID {
			result = append(result, session)
		}
	}
	return result
}

// UnbindRoom detaches every session from a removed room.
func (m *Manager) UnbindRoom(roomCode string) {
	for _, session := range m.GetByRoom(roomCode) {
		session.mutex.Lock()
		session.roomCode = ""
		session.playerID = 0
		session.mutex.Unlock()
	}
}
