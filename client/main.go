package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/fruitbox/board"
	"github.com/wfunc/fruitbox/logger"
	"github.com/wfunc/fruitbox/models"
	"github.com/wfunc/fruitbox/network"
)

// client keeps the latest board the server sent so "play" can pick a move.
type client struct {
	conn     *websocket.Conn
	board    board.Grid
	roomCode string
	mutex    sync.Mutex
	writeMu  sync.Mutex
}

// send formats and sends a message to the WebSocket server.
func (c *client) send(msgID uint16, v interface{}) error {
	var data []byte
	if v != nil {
		var err error
		if data, err = json.Marshal(v); err != nil {
			return err
		}
	}
	packet, err := network.Encode(msgID, data)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, packet)
}

func (c *client) readLoop(done chan struct{}, name string) {
	defer close(done)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Infof("Read error: %v", err)
			return
		}
		packet, err := network.Decode(message)
		if err != nil {
			logger.Log.Warnf("Received invalid packet of size %d", len(message))
			continue
		}
		logger.Log.Infof("<- RECV (ID: %d): %s", packet.MsgID, string(packet.Data))
		c.handle(packet, name)
	}
}

func (c *client) handle(packet *network.Packet, name string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch packet.MsgID {
	case network.MsgTypeRoomState:
		var status models.RoomStatus
		if json.Unmarshal(packet.Data, &status) == nil && c.roomCode == "" {
			// a freshly created room: join it right away
			c.roomCode = status.RoomCode
			if err := c.send(network.MsgTypeJoinRoom, models.JoinRoomRequest{RoomCode: status.RoomCode, PlayerName: name}); err != nil {
				logger.Log.Errorf("Write error: %v", err)
			}
		}
	case network.MsgTypePlayerState:
		var joined models.JoinResult
		if json.Unmarshal(packet.Data, &joined) == nil && joined.PlayerID != 0 {
			c.roomCode = joined.RoomCode
			c.board = joined.Board.Board
			return
		}
		// a pushed or synced board view
		var view models.BoardView
		if json.Unmarshal(packet.Data, &view) == nil {
			c.board = view.Board
		}
	case network.MsgTypeSelectionResult:
		var result models.SelectionResult
		if json.Unmarshal(packet.Data, &result) == nil {
			c.board = result.Board
		}
	case network.MsgTypeNewBoardResult:
		var result models.NewBoardResult
		if json.Unmarshal(packet.Data, &result) == nil && result.Board != nil {
			c.board = *result.Board
		}
	}
}

// nextMove returns the first solution on the latest board.
func (c *client) nextMove() (board.Rectangle, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	solutions := board.AllSolutions(c.board)
	if len(solutions) == 0 {
		return board.Rectangle{}, false
	}
	return solutions[0], true
}

func (c *client) command(text string) error {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "play":
		rect, ok := c.nextMove()
		if !ok {
			logger.Log.Info("No moves left, requesting a new board")
			return c.send(network.MsgTypeRequestBoard, nil)
		}
		return c.send(network.MsgTypeSelection, models.SelectionRequest{
			StartRow: rect.MinRow, StartCol: rect.MinCol, EndRow: rect.MaxRow, EndCol: rect.MaxCol,
		})
	case "sel":
		if len(fields) != 5 {
			logger.Log.Info("usage: sel <start_row> <start_col> <end_row> <end_col>")
			return nil
		}
		var n [4]int
		for i := range n {
			v, err := strconv.Atoi(fields[i+1])
			if err != nil {
				logger.Log.Infof("not a number: %s", fields[i+1])
				return nil
			}
			n[i] = v
		}
		return c.send(network.MsgTypeSelection, models.SelectionRequest{StartRow: n[0], StartCol: n[1], EndRow: n[2], EndCol: n[3]})
	case "new":
		return c.send(network.MsgTypeRequestBoard, nil)
	case "start":
		return c.send(network.MsgTypeStartGame, nil)
	case "finish":
		return c.send(network.MsgTypeFinish, nil)
	case "ping":
		return c.send(network.MsgTypeHeartbeat, nil)
	default:
		logger.Log.Infof("unknown command %q (play, sel, new, start, finish, ping)", fields[0])
	}
	return nil
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	roomCode := flag.String("room", "", "room code to join; empty creates a room")
	roomName := flag.String("create", "Orchard", "name of the room to create")
	name := flag.String("name", "player", "player name")
	flag.Parse()

	logger.Init()
	defer logger.Sync()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	logger.Log.Infof("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	c := &client{conn: conn}
	done := make(chan struct{})
	go c.readLoop(done, *name)

	if *roomCode == "" {
		err = c.send(network.MsgTypeCreateRoom, models.CreateRoomRequest{Name: *roomName, MaxPlayers: 4})
	} else {
		c.roomCode = strings.ToUpper(*roomCode)
		err = c.send(network.MsgTypeJoinRoom, models.JoinRoomRequest{RoomCode: c.roomCode, PlayerName: *name})
	}
	if err != nil {
		logger.Log.Errorf("Write error: %v", err)
		return
	}

	logger.Log.Info("Client started. Commands: play, sel r1 c1 r2 c2, new, start, finish, ping")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			logger.Log.Info("Interrupt received, closing connection.")
			c.writeMu.Lock()
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.writeMu.Unlock()
			if err != nil {
				logger.Log.Warnf("Write close error: %v", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case text := <-lines:
			if err := c.command(text); err != nil {
				logger.Log.Errorf("Write error: %v", err)
				return
			}
		}
	}
}
