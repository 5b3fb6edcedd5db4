package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/wfunc/fruitbox/logger"
	"github.com/wfunc/fruitbox/monitor"
	fruitbox_rpc "github.com/wfunc/fruitbox/rpc"
	"github.com/wfunc/fruitbox/services"
	"github.com/wfunc/fruitbox/session"
)

const (
	requestTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
	heartbeat       = 30 * time.Second
)

type GameServer struct {
	addr           string
	rpcAddr        string
	router         chi.Router
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	game           *services.GameService
	monitor        *monitor.Monitor
	httpServer     *http.Server
	rpcServer      *fruitbox_rpc.Server
	shutdownOnce   sync.Once
	shutdownChan   chan struct{}
}

func NewGameServer(addr, rpcAddr string, game *services.GameService, sessions *session.Manager, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		addr:           addr,
		rpcAddr:        rpcAddr,
		sessionManager: sessions,
		game:           game,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.router = s.routes()
	return s
}

// Router exposes the HTTP handler, mainly for tests.
func (s *GameServer) Router() http.Handler {
	return s.router
}

func (s *GameServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Handle("/metrics", s.monitor.Handler())
	r.Get("/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))

		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", s.handleCreateRoom)
			r.Get("/", s.handleListRooms)
			r.Post("/cleanup", s.handleCleanup)

			r.Route("/{code}", func(r chi.Router) {
				r.Get("/status", s.handleRoomStatus)
				r.Post("/start", s.handleStartGame)
				r.Post("/players", s.handleJoinRoom)

				r.Route("/players/{playerID}", func(r chi.Router) {
					r.Get("/board", s.handleGetBoard)
					r.Post("/selections", s.handleSelection)
					r.Post("/new-board", s.handleNewBoard)
					r.Post("/finish", s.handleFinish)
					r.Post("/time", s.handleSyncTime)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	return r
}

// Start runs the HTTP and RPC servers until ctx is done or either fails.
func (s *GameServer) Start(ctx context.Context) error {
	rpcServer, err := fruitbox_rpc.NewServer(s.rpcAddr, fruitbox_rpc.NewRoomService(s.game))
	if err != nil {
		return err
	}
	s.rpcServer = rpcServer
	s.httpServer = &http.Server{Addr: s.addr, Handler: s.router}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rpcServer.Start()
		return nil
	})
	g.Go(func() error {
		logger.Log.Infof("Game server listening on %s", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.Shutdown()
		return nil
	})
	return g.Wait()
}

// Shutdown stops accepting connections and closes open websocket loops.
func (s *GameServer) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		if s.rpcServer != nil {
			s.rpcServer.Stop()
		}
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				logger.Log.Warnf("HTTP shutdown: %v", err)
			}
		}
	})
}
