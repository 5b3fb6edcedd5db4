package broadcast

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wfunc/fruitbox/network"
	"github.com/wfunc/fruitbox/session"
)

type recordingConn struct {
	mutex sync.Mutex
	sent  []uint16
	fail  bool
}

func (c *recordingConn) Send(msgID uint16, data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.fail {
		return errors.New("closed")
	}
	c.sent = append(c.sent, msgID)
	return nil
}
func (c *recordingConn) Close() error                         { return nil }
func (c *recordingConn) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (c *recordingConn) SetHeartbeat(time.Duration)           {}
func (c *recordingConn) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestRoomBroadcaster(t *testing.T) {
	sessions := session.NewManager()

	a, b, broken, other := &recordingConn{}, &recordingConn{}, &recordingConn{fail: true}, &recordingConn{}
	for id, c := range map[string]*recordingConn{"a": a, "b": b, "broken": broken, "other": other} {
		s := session.NewSession(id, c)
		switch id {
		case "a":
			s.Bind("ROOM01", 1)
		case "b":
			s.Bind("ROOM01", 2)
		case "broken":
			s.Bind("ROOM01", 3)
		default:
			s.Bind("ROOM02", 4)
		}
		sessions.Add(s)
	}

	bc := NewRoomBroadcaster(sessions)

	assert.NoError(t, bc.BroadcastToRoom("ROOM01", network.MsgTypeMoveMade, []byte("{}")))
	assert.Equal(t, []uint16{network.MsgTypeMoveMade}, a.sent)
	assert.Equal(t, []uint16{network.MsgTypeMoveMade}, b.sent)
	assert.Empty(t, other.sent)

	assert.NoError(t, bc.SendToPlayer("ROOM01", 2, network.MsgTypeBoardRenewed, nil))
	assert.Len(t, a.sent, 1)
	assert.Len(t, b.sent, 2)
}
