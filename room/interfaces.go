package room

// Broadcaster defines the interface for broadcasting messages to a room's subscribers.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomCode string, msgID uint16, data []byte) error
}
