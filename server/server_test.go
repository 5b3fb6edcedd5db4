package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/fruitbox/board"
	"github.com/wfunc/fruitbox/broadcast"
	"github.com/wfunc/fruitbox/models"
	"github.com/wfunc/fruitbox/monitor"
	"github.com/wfunc/fruitbox/network"
	"github.com/wfunc/fruitbox/persistence"
	"github.com/wfunc/fruitbox/services"
	"github.com/wfunc/fruitbox/session"
)

type pairGenerator struct{}

func (pairGenerator) Generate() board.Grid {
	var g board.Grid
	for i := range g {
		for j := range g[i] {
			g[i][j] = 9
		}
	}
	g[0][0], g[0][1] = 4, 6
	return g
}

func newTestServer(t *testing.T) *GameServer {
	t.Helper()
	sessions := session.NewManager()
	mon := monitor.NewMonitor("test")
	game := services.NewGameService(persistence.NewMemory(), broadcast.NewRoomBroadcaster(sessions), mon, pairGenerator{},
		services.OnRoomRemoved(sessions.UnbindRoom))
	return NewGameServer("127.0.0.1:0", "127.0.0.1:0", game, sessions, mon)
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHTTP_GameFlow(t *testing.T) {
	h := newTestServer(t).Router()

	rec := do(t, h, http.MethodPost, "/rooms", models.CreateRoomRequest{Name: "Orchard", MaxPlayers: 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	room := decodeBody[models.RoomStatus](t, rec)
	require.Len(t, room.RoomCode, 6)

	rec = do(t, h, http.MethodPost, "/rooms/"+room.RoomCode+"/players", models.JoinRoomRequest{PlayerName: "ann"})
	require.Equal(t, http.StatusCreated, rec.Code)
	ann := decodeBody[models.JoinResult](t, rec)
	assert.Equal(t, 4, ann.Board.Board[0][0])

	rec = do(t, h, http.MethodPost, "/rooms/"+room.RoomCode+"/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/rooms/"+room.RoomCode+"/players", models.JoinRoomRequest{PlayerName: "bob"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/rooms/"+room.RoomCode+"/players", models.JoinRoomRequest{PlayerName: "cid"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/rooms/"+room.RoomCode+"/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "playing", decodeBody[models.RoomStatus](t, rec).Status)

	base := fmt.Sprintf("/rooms/%s/players/%d", room.RoomCode, ann.PlayerID)

	rec = do(t, h, http.MethodPost, base+"/selections", models.SelectionRequest{StartRow: 0, StartCol: 0, EndRow: 0, EndCol: 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[models.SelectionResult](t, rec).Accepted)

	rec = do(t, h, http.MethodPost, base+"/selections", models.SelectionRequest{StartRow: 0, StartCol: 1, EndRow: 0, EndCol: 0})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[models.SelectionResult](t, rec)
	assert.True(t, result.Accepted)
	assert.Equal(t, 2, result.Score)
	assert.True(t, result.NewBoard)

	rec = do(t, h, http.MethodGet, base+"/board", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[models.BoardView](t, rec).Generation)

	rec = do(t, h, http.MethodPost, base+"/new-board", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeBody[models.NewBoardResult](t, rec).Board)

	rec = do(t, h, http.MethodPost, base+"/time", models.TimeRequest{TimeRemaining: 45})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 45, decodeBody[models.BoardView](t, rec).TimeRemaining)

	rec = do(t, h, http.MethodPost, base+"/finish", models.FinishRequest{FinalScore: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	finish := decodeBody[models.FinishResult](t, rec)
	assert.Equal(t, 2, finish.FinalScore)
	assert.False(t, finish.AllPlayersFinished)

	rec = do(t, h, http.MethodGet, "/rooms/"+room.RoomCode+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[models.RoomStatus](t, rec)
	assert.Equal(t, 2, status.PlayerCount)
	assert.Equal(t, 1, status.Generation)

	rec = do(t, h, http.MethodGet, "/rooms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.RoomStatus](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_moves_total{result="accepted"} 1`)
}

func TestHTTP_Errors(t *testing.T) {
	h := newTestServer(t).Router()

	rec := do(t, h, http.MethodGet, "/rooms/NOPE00/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeBody[models.ErrorResponse](t, rec).Error, "room not found")

	rec = do(t, h, http.MethodPost, "/rooms", models.CreateRoomRequest{Name: "Big", MaxPlayers: 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/rooms", models.CreateRoomRequest{Name: "  ", MaxPlayers: 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/rooms/NOPE00/players/abc/board", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_Cleanup(t *testing.T) {
	h := newTestServer(t).Router()
	for _, name := range []string{"One", "Two"} {
		rec := do(t, h, http.MethodPost, "/rooms", models.CreateRoomRequest{Name: name, MaxPlayers: 2})
		require.Equal(t, http.StatusCreated, rec.Code)
		code := decodeBody[models.RoomStatus](t, rec).RoomCode
		rec = do(t, h, http.MethodPost, "/rooms/"+code+"/players", models.JoinRoomRequest{PlayerName: "ann"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/rooms/cleanup?delete_all=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeBody[models.CleanupResult](t, rec).RoomsDeleted)
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(msgID uint16, v interface{}) {
	c.t.Helper()
	var data []byte
	if v != nil {
		var err error
		data, err = json.Marshal(v)
		require.NoError(c.t, err)
	}
	raw, err := network.Encode(msgID, data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.BinaryMessage, raw))
}

// expect reads packets until one with msgID arrives.
func (c *wsClient) expect(msgID uint16, v interface{}) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, raw, err := c.conn.ReadMessage()
		require.NoError(c.t, err)
		packet, err := network.Decode(raw)
		require.NoError(c.t, err)
		if packet.MsgID != msgID {
			continue
		}
		if v != nil {
			require.NoError(c.t, json.Unmarshal(packet.Data, v))
		}
		return
	}
}

func TestWebSocket_PlayAndEvents(t *testing.T) {
	gs := newTestServer(t)
	srv := httptest.NewServer(gs.Router())
	defer srv.Close()
	defer gs.Shutdown()

	ann := dial(t, srv)
	ann.send(network.MsgTypeCreateRoom, models.CreateRoomRequest{Name: "Orchard", MaxPlayers: 4})
	var room models.RoomStatus
	ann.expect(network.MsgTypeRoomState, &room)

	ann.send(network.MsgTypeJoinRoom, models.JoinRoomRequest{RoomCode: room.RoomCode, PlayerName: "ann"})
	var joined models.JoinResult
	ann.expect(network.MsgTypePlayerState, &joined)
	assert.Equal(t, room.RoomCode, joined.RoomCode)

	spectator := dial(t, srv)
	spectator.send(network.MsgTypeSubscribe, models.SubscribeRequest{RoomCode: room.RoomCode})
	spectator.expect(network.MsgTypeRoomState, nil)

	// a second connection of the same player
	annTab := dial(t, srv)
	annTab.send(network.MsgTypeSubscribe, models.SubscribeRequest{RoomCode: room.RoomCode, PlayerID: joined.PlayerID})
	annTab.expect(network.MsgTypeRoomState, nil)

	ann.send(network.MsgTypeSelection, models.SelectionRequest{StartRow: 0, StartCol: 0, EndRow: 0, EndCol: 1})
	var result models.SelectionResult
	ann.expect(network.MsgTypeSelectionResult, &result)
	assert.True(t, result.Accepted)
	assert.Equal(t, 2, result.PointsEarned)

	var event models.Event
	spectator.expect(network.MsgTypeMoveMade, &event)
	assert.Equal(t, models.EventMoveMade, event.Type)
	assert.Equal(t, joined.PlayerID, event.PlayerID)
	assert.Equal(t, 2, event.Points)

	spectator.expect(network.MsgTypeBoardRenewed, &event)
	assert.Equal(t, 1, event.Generation)

	var pushed models.BoardView
	annTab.expect(network.MsgTypePlayerState, &pushed)
	assert.Equal(t, 1, pushed.Generation)
	assert.Equal(t, 2, pushed.Score)

	// spectators cannot play
	spectator.send(network.MsgTypeSelection, models.SelectionRequest{})
	var errResp models.ErrorResponse
	spectator.expect(network.MsgTypeError, &errResp)
	assert.Contains(t, errResp.Error, "player not found")

	ann.send(network.MsgTypeHeartbeat, nil)
	ann.expect(network.MsgTypeHeartbeat, nil)
}
