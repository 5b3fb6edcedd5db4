package room

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/fruitbox/models"
	"github.com/wfunc/fruitbox/state"
)

// MockBroadcaster is a test double for the Broadcaster interface.
type MockBroadcaster struct {
	mutex sync.Mutex
	msgs  []uint16
}

func (m *MockBroadcaster) BroadcastToRoom(roomCode string, msgID uint16, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.msgs = append(m.msgs, msgID)
	return nil
}

func TestRoomManager_CreateAndGetRoom(t *testing.T) {
	manager := NewRoomManager(&MockBroadcaster{})

	room, err := manager.CreateRoom("Test Room", 4)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), room.Code)
	assert.Equal(t, state.StatusWaiting, room.Status())

	retrievedRoom, exists := manager.GetRoom(room.Code)
	require.True(t, exists, "GetRoom should find the created room")
	assert.Same(t, room, retrievedRoom)

	_, exists = manager.GetRoom("NOPE00")
	assert.False(t, exists)
}

func TestRoomManager_CreateRoomValidation(t *testing.T) {
	manager := NewRoomManager(nil)

	_, err := manager.CreateRoom("Lobby", 0)
	assert.True(t, errors.Is(err, models.ErrInvalidMaxPlayers))
	_, err = manager.CreateRoom("Lobby", 5)
	assert.True(t, errors.Is(err, models.ErrInvalidMaxPlayers))
	_, err = manager.CreateRoom("   ", 2)
	assert.True(t, errors.Is(err, models.ErrInvalidName))

	_, err = manager.CreateRoom("Lobby", 2)
	require.NoError(t, err)
	_, err = manager.CreateRoom("lobby", 2)
	assert.True(t, errors.Is(err, models.ErrRoomNameTaken))
}

func TestRoomManager_CodesAreUnique(t *testing.T) {
	manager := NewRoomManager(nil)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		room, err := manager.CreateRoom(fmt.Sprintf("room-%d", i), 2)
		require.NoError(t, err)
		require.False(t, seen[room.Code], "duplicate code %s", room.Code)
		seen[room.Code] = true
	}
}

func TestRoom_AddPlayer(t *testing.T) {
	manager := NewRoomManager(&MockBroadcaster{})
	room, err := manager.CreateRoom("Add Player Test", 2)
	require.NoError(t, err)

	_, player, err := manager.Join(room.Code, "alice")
	require.NoError(t, err)

	assert.Equal(t, 1, room.PlayerCount())
	assert.Equal(t, room.ID, player.RoomID)
	got, exists := room.GetPlayer(player.ID)
	require.True(t, exists)
	assert.Equal(t, "alice", got.Name)

	_, _, err = manager.Join(room.Code, "ALICE")
	assert.True(t, errors.Is(err, models.ErrPlayerNameTaken))
}

func TestRoom_AddPlayer_Full(t *testing.T) {
	manager := NewRoomManager(&MockBroadcaster{})
	room, err := manager.CreateRoom("Full Room Test", 2)
	require.NoError(t, err)

	_, _, err = manager.Join(room.Code, "p1")
	require.NoError(t, err)
	_, _, err = manager.Join(room.Code, "p2")
	require.NoError(t, err)
	assert.True(t, room.Full())

	_, _, err = manager.Join(room.Code, "p3")
	assert.True(t, errors.Is(err, models.ErrRoomFull))
	assert.Equal(t, 2, room.PlayerCount())
}

func TestRoom_StartNeedsTwoPlayers(t *testing.T) {
	broadcaster := &MockBroadcaster{}
	manager := NewRoomManager(broadcaster)
	room, err := manager.CreateRoom("Start Test", 4)
	require.NoError(t, err)

	_, _, err = manager.Join(room.Code, "solo")
	require.NoError(t, err)
	assert.False(t, room.CanStart())

	err = room.Start()
	assert.True(t, errors.Is(err, models.ErrRoomNotStartable))
	assert.Equal(t, state.StatusWaiting, room.Status())

	_, _, err = manager.Join(room.Code, "duo")
	require.NoError(t, err)
	require.NoError(t, room.Start())
	assert.Equal(t, state.StatusPlaying, room.Status())
	require.NoError(t, room.Start(), "starting twice is harmless")

	require.NoError(t, room.Finish())
	assert.Equal(t, state.StatusFinished, room.Status())
	assert.Error(t, room.Start(), "a finished room never goes back to playing")
}

func TestPlayer_Color(t *testing.T) {
	assert.Equal(t, "#3b82f6", (&Player{ID: 4}).Color())
	assert.Equal(t, "#10b981", (&Player{ID: 5}).Color())
	assert.Equal(t, "#ef4444", (&Player{ID: 3}).Color())
}

func TestRoomManager_Idle(t *testing.T) {
	manager := NewRoomManager(nil)
	empty, err := manager.CreateRoom("Empty", 2)
	require.NoError(t, err)
	busy, err := manager.CreateRoom("Busy", 2)
	require.NoError(t, err)
	_, _, err = manager.Join(busy.Code, "bob")
	require.NoError(t, err)

	now := time.Now()
	assert.Equal(t, []string{empty.Code}, manager.Idle(now, 5*time.Minute))

	later := now.Add(6 * time.Minute)
	assert.ElementsMatch(t, []string{empty.Code, busy.Code}, manager.Idle(later, 5*time.Minute))

	// A move refreshes the activity clock.
	busy.lastMoveAt = later.Add(-time.Minute)
	assert.Equal(t, []string{empty.Code}, manager.Idle(later, 5*time.Minute))

	manager.RemoveRoom(empty.Code)
	_, exists := manager.GetRoom(empty.Code)
	assert.False(t, exists)
	_, err = manager.CreateRoom("Empty", 2)
	assert.NoError(t, err, "a removed room frees its name")
}
