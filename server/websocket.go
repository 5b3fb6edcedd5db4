package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/fruitbox/logger"
	"github.com/wfunc/fruitbox/models"
	"github.com/wfunc/fruitbox/network"
	"github.com/wfunc/fruitbox/session"
)

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(heartbeat)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.monitor.IncMessagesReceived()
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	sess.Touch()
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		s.reply(sess, network.MsgTypeHeartbeat, nil)
	case network.MsgTypeCreateRoom:
		s.wsCreateRoom(sess, packet)
	case network.MsgTypeJoinRoom:
		s.wsJoinRoom(sess, packet)
	case network.MsgTypeSubscribe:
		s.wsSubscribe(sess, packet)
	case network.MsgTypeStartGame:
		s.wsStartGame(sess, packet)
	case network.MsgTypeSelection:
		s.wsSelection(sess, packet)
	case network.MsgTypeRequestBoard:
		s.wsRequestBoard(sess)
	case network.MsgTypeFinish:
		s.wsFinish(sess, packet)
	case network.MsgTypeSyncTime:
		s.wsSyncTime(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

// reply sends v as JSON on msgID to one session.
func (s *GameServer) reply(sess *session.Session, msgID uint16, v interface{}) {
	var data []byte
	if v != nil {
		var err error
		if data, err = json.Marshal(v); err != nil {
			logger.Log.Errorf("Error marshalling reply %d: %v", msgID, err)
			return
		}
	}
	if err := sess.Send(msgID, data); err != nil {
		logger.Log.Warnf("Send to session %s failed: %v", sess.GetID(), err)
	}
}

func (s *GameServer) replyError(sess *session.Session, err error) {
	s.reply(sess, network.MsgTypeError, models.ErrorResponse{Error: err.Error()})
}

// unmarshal decodes a packet body, answering malformed input with an error
// packet.
func (s *GameServer) unmarshal(sess *session.Session, packet *network.Packet, v interface{}) bool {
	if len(packet.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(packet.Data, v); err != nil {
		s.reply(sess, network.MsgTypeError, models.ErrorResponse{Error: "invalid json"})
		return false
	}
	return true
}

// bound returns the room and player of a session, answering with an error
// packet when the session has not joined a room as a player.
func (s *GameServer) bound(sess *session.Session) (string, int64, bool) {
	code, playerID := sess.RoomCode(), sess.PlayerID()
	if code == "" || playerID == 0 {
		logger.Log.Warnf("Session %s sent game action but is not in a room", sess.GetID())
		s.replyError(sess, models.ErrPlayerNotFound)
		return "", 0, false
	}
	return code, playerID, true
}

func (s *GameServer) wsCreateRoom(sess *session.Session, packet *network.Packet) {
	var req models.CreateRoomRequest
	if !s.unmarshal(sess, packet, &req) {
		return
	}
	status, err := s.game.CreateRoom(req.Name, req.MaxPlayers)
	if err != nil {
		s.replyError(sess, err)
		return
	}
	logger.Log.Infof("Session %s created room %s", sess.GetID(), status.RoomCode)
	s.reply(sess, network.MsgTypeRoomState, status)
}

func (s *GameServer) wsJoinRoom(sess *session.Session, packet *network.Packet) {
	var req models.JoinRoomRequest
	if !s.unmarshal(sess, packet, &req) {
		return
	}
	playerID, err := s.game.JoinRoom(req.RoomCode, req.PlayerName)
	if err != nil {
		s.replyError(sess, err)
		return
	}
	view, err := s.game.GetVisibleBoard(req.RoomCode, playerID)
	if err != nil {
		s.replyError(sess, err)
		return
	}
	sess.Bind(view.RoomCode, playerID)
	logger.Log.Infof("Session %s joined room %s as player %d", sess.GetID(), view.RoomCode, playerID)
	s.reply(sess, network.MsgTypePlayerState, models.JoinResult{PlayerID: playerID, RoomCode: view.RoomCode, Board: view})
}

func (s *GameServer) wsSubscribe(sess *session.Session, packet *network.Packet) {
	var req models.SubscribeRequest
	if !s.unmarshal(sess, packet, &req) {
		return
	}
	status, err := s.game.GetRoomStatus(req.RoomCode)
	if err != nil {
		s.replyError(sess, err)
		return
	}
	if req.PlayerID != 0 {
		if _, err := s.game.GetVisibleBoard(status.RoomCode, req.PlayerID); err != nil {
			s.replyError(sess, err)
			return
		}
	}
	sess.Bind(status.RoomCode, req.PlayerID)
	s.reply(sess, network.MsgTypeRoomState, status)
}

func (s *GameServer) wsStartGame(sess *session.Session, packet *network.Packet) {
	var req models.SubscribeRequest
	if !s.unmarshal(sess, packet, &req) {
		return
	}
	code := req.RoomCode
	if code == "" {
		code = sess.RoomCode()
	}
	status, err := s.game.StartGame(code)
	if err != nil {
		s.replyError(sess, err)
		return
	}
	s.reply(sess, network.MsgTypeRoomState, status)
}

func (s *GameServer) wsSelection(sess *session.Session, packet *network.Packet) {
	code, playerID, ok := s.bound(sess)
	if !ok {
		return
	}
	var req models.SelectionRequest
	if !s.unmarshal(sess, packet, &req) {
		return
	}
	result, err := s.game.SubmitSelection(code, playerID, req.Rectangle())
	if err != nil {
		s.replyError(sess, err)
		return
	}
	s.reply(sess, network.MsgTypeSelectionResult, result)
}

func (s *GameServer) wsRequestBoard(sess *session.Session) {
	code, playerID, ok := s.bound(sess)
	if !ok {
		return
	}
	result, err := s.game.RequestNewBoard(code, playerID)
	if err != nil {
		s.replyError(sess, err)
		return
	}
	s.reply(sess, network.MsgTypeNewBoardResult, result)
}

func (s *GameServer) wsFinish(sess *session.Session, packet *network.Packet) {
	code, playerID, ok := s.bound(sess)
	if !ok {
		return
	}
	var req models.FinishRequest
	if !s.unmarshal(sess, packet, &req) {
		return
	}
	result, err := s.game.ReportFinished(code, playerID, req.FinalScore)
	if err != nil {
		s.replyError(sess, err)
		return
	}
	s.reply(sess, network.MsgTypeFinishResult, result)
}

func (s *GameServer) wsSyncTime(sess *session.Session, packet *network.Packet) {
	code, playerID, ok := s.bound(sess)
	if !ok {
		return
	}
	var req models.TimeRequest
	if !s.unmarshal(sess, packet, &req) {
		return
	}
	view, err := s.game.SyncTime(code, playerID, req.TimeRemaining)
	if err != nil {
		s.replyError(sess, err)
		return
	}
	s.reply(sess, network.MsgTypePlayerState, view)
}
