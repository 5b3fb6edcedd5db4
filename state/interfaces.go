// state/interfaces.go
package state

import "github.com/wfunc/fruitbox/models"

// RoomContext defines what a room must expose to be driven by the state machine.
// This breaks the import cycle between room and state.
type RoomContext interface {
	GetCode() string
	CanStart() bool
	SetStatus(status string)
	Describe() models.RoomStatus
	Broadcast(msgID uint16, data []byte) error
}
