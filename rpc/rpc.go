package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/fruitbox/logger"
	"github.com/wfunc/fruitbox/models"
	"github.com/wfunc/fruitbox/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers the given receivers.
func NewServer(addr string, receivers ...interface{}) (*Server, error) {
	server := rpc.NewServer()
	for _, rcvr := range receivers {
		if err := server.Register(rcvr); err != nil {
			return nil, err
		}
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
		rpc:      server,
	}, nil
}

// Addr is the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start serves RPC connections until Stop is called.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// RoomService exposes room administration over net/rpc.
type RoomService struct {
	game *services.GameService
}

func NewRoomService(game *services.GameService) *RoomService {
	return &RoomService{game: game}
}

type RoomArgs struct {
	RoomCode string
}

// ListArgs limits the listing to the Limit newest rooms; 0 lists all.
type ListArgs struct {
	Limit int
}

type ListReply struct {
	Rooms []models.RoomStatus
}

type CleanupArgs struct {
	DeleteAll bool
	Name      string
}

type CleanupReply struct {
	RoomsDeleted int
}

func (rs *RoomService) GetRoomStatus(args *RoomArgs, reply *models.RoomStatus) error {
	status, err := rs.game.GetRoomStatus(args.RoomCode)
	if err != nil {
		return err
	}
	*reply = status
	return nil
}

func (rs *RoomService) ListRooms(args *ListArgs, reply *ListReply) error {
	rooms := rs.game.ListRooms()
	if args.Limit > 0 && len(rooms) > args.Limit {
		rooms = rooms[:args.Limit]
	}
	reply.Rooms = rooms
	return nil
}

func (rs *RoomService) Cleanup(args *CleanupArgs, reply *CleanupReply) error {
	reply.RoomsDeleted = rs.game.Cleanup(services.CleanupOptions{DeleteAll: args.DeleteAll, Name: args.Name})
	return nil
}
