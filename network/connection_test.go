package network

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	raw, err := Encode(MsgTypeSelection, []byte(`{"start_row":0}`))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xC9, 0x00, 0x0F}, raw[:4])

	packet, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, uint16(MsgTypeSelection), packet.MsgID)
	assert.Equal(t, uint16(15), packet.Length)
	assert.Equal(t, `{"start_row":0}`, string(packet.Data))
}

func TestDecode_Short(t *testing.T) {
	_, err := Decode([]byte{0, 1, 0})
	assert.ErrorIs(t, err, io.ErrShortBuffer)

	// header announces more data than present
	_, err = Decode([]byte{0, 1, 0, 5, 'a'})
	assert.ErrorIs(t, err, io.ErrShortBuffer)
}

func TestEncode_TooLarge(t *testing.T) {
	_, err := Encode(MsgTypeHeartbeat, make([]byte, 1<<16))
	assert.ErrorIs(t, err, ErrPacketTooLarge)
}
