// coordinator/coordinator.go
package coordinator

import (
	"fmt"
	"sync"

	"github.com/wfunc/fruitbox/board"
	"github.com/wfunc/fruitbox/models"
	"github.com/wfunc/fruitbox/playerboard"
)

// Phase is the new-board negotiation state of a room.
type Phase int

const (
	// PhaseActive: everyone plays the first generation.
	PhaseActive Phase = iota
	// PhasePlayerRequested: at least one player moved ahead to a newer
	// generation while others still play an older one.
	PhasePlayerRequested
	// PhaseRegenerating: a new configuration is being built. The build runs
	// entirely under the room lock, so Phase never reports it.
	PhaseRegenerating
	// PhaseDistributed: every unfinished player is on the latest generation.
	PhaseDistributed
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhasePlayerRequested:
		return "player_requested"
	case PhaseRegenerating:
		return "regenerating"
	case PhaseDistributed:
		return "distributed"
	}
	return "unknown"
}

// Generator produces fresh tile grids.
type Generator interface {
	Generate() board.Grid
}

// Recorder observes every committed configuration and player snapshot.
// Calls for one player arrive in commit order.
type Recorder interface {
	BoardCreated(cfg *board.Configuration)
	StateCommitted(s playerboard.State)
}

type nopRecorder struct{}

func (nopRecorder) BoardCreated(*board.Configuration) {}
func (nopRecorder) StateCommitted(playerboard.State)  {}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRecorder installs a recorder for boards and player snapshots.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

// Coordinator owns the board generations of every room and the current
// snapshot of every player.
//
// Locking: a player's lane lock is always taken before its room lock.
// Different players of one room only contend on the room lock, which guards
// the generation arena.
type Coordinator struct {
	generator Generator
	recorder  Recorder
	rooms     map[string]*roomBoards
	mutex     sync.RWMutex
}

// New creates a coordinator drawing boards from gen.
func New(gen Generator, opts ...Option) *Coordinator {
	c := &Coordinator{
		generator: gen,
		recorder:  nopRecorder{},
		rooms:     make(map[string]*roomBoards),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type roomBoards struct {
	code        string
	generations []*board.Configuration
	phase       Phase
	players     map[int64]*lane
	positions   map[int64]int // generation each player is on
	finished    map[int64]bool
	mutex       sync.Mutex
}

// lane serializes all writes for one player.
type lane struct {
	current playerboard.State
	mutex   sync.RWMutex
}

// OpenRoom registers a room and builds its first generation. Opening an
// existing room returns its latest configuration.
func (c *Coordinator) OpenRoom(code string) *board.Configuration {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if rb, exists := c.rooms[code]; exists {
		rb.mutex.Lock()
		defer rb.mutex.Unlock()
		return rb.latest()
	}

	cfg := board.NewConfiguration(code, 0, c.generator.Generate())
	c.rooms[code] = &roomBoards{
		code:        code,
		generations: []*board.Configuration{cfg},
		phase:       PhaseActive,
		players:     make(map[int64]*lane),
		positions:   make(map[int64]int),
		finished:    make(map[int64]bool),
	}
	c.recorder.BoardCreated(cfg)
	return cfg
}

// CloseRoom drops every generation and player snapshot of a room.
func (c *Coordinator) CloseRoom(code string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.rooms, code)
}

func (c *Coordinator) room(code string) (*roomBoards, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	rb, exists := c.rooms[code]
	if !exists {
		return nil, fmt.Errorf("%w: %s", models.ErrRoomNotFound, code)
	}
	return rb, nil
}

func (c *Coordinator) lane(code string, playerID int64) (*roomBoards, *lane, error) {
	rb, err := c.room(code)
	if err != nil {
		return nil, nil, err
	}

	rb.mutex.Lock()
	defer rb.mutex.Unlock()

	ln, exists := rb.players[playerID]
	if !exists {
		return nil, nil, fmt.Errorf("%w: %d", models.ErrPlayerNotFound, playerID)
	}
	return rb, ln, nil
}

// Join seeds playerID on the room's latest generation. Joining twice
// returns the current snapshot.
func (c *Coordinator) Join(code string, playerID int64) (playerboard.State, *board.Configuration, error) {
	rb, err := c.room(code)
	if err != nil {
		return playerboard.State{}, nil, err
	}

	rb.mutex.Lock()
	ln, exists := rb.players[playerID]
	if !exists {
		cfg := rb.latest()
		st := playerboard.Seed(cfg, playerID)
		rb.players[playerID] = &lane{current: st}
		rb.positions[playerID] = cfg.Generation
		rb.phase = rb.computePhase()
		c.recorder.StateCommitted(st)
		rb.mutex.Unlock()
		return st, cfg, nil
	}
	rb.mutex.Unlock()

	st := ln.snapshot()
	return st, rb.config(st.Generation), nil
}

// Snapshot returns the current state of a player and the configuration it
// refers to. It never changes anything.
func (c *Coordinator) Snapshot(code string, playerID int64) (playerboard.State, *board.Configuration, error) {
	rb, ln, err := c.lane(code, playerID)
	if err != nil {
		return playerboard.State{}, nil, err
	}
	st := ln.snapshot()
	return st, rb.config(st.Generation), nil
}

// Phase reports the negotiation phase of a room.
func (c *Coordinator) Phase(code string) (Phase, error) {
	rb, err := c.room(code)
	if err != nil {
		return PhaseActive, err
	}
	rb.mutex.Lock()
	defer rb.mutex.Unlock()
	return rb.phase, nil
}

// Latest returns the newest configuration of a room.
func (c *Coordinator) Latest(code string) (*board.Configuration, error) {
	rb, err := c.room(code)
	if err != nil {
		return nil, err
	}
	rb.mutex.Lock()
	defer rb.mutex.Unlock()
	return rb.latest(), nil
}

func (ln *lane) snapshot() playerboard.State {
	ln.mutex.RLock()
	defer ln.mutex.RUnlock()
	return ln.current
}

func (rb *roomBoards) latest() *board.Configuration {
	return rb.generations[len(rb.generations)-1]
}

func (rb *roomBoards) config(generation int) *board.Configuration {
	rb.mutex.Lock()
	defer rb.mutex.Unlock()
	return rb.generations[generation]
}

// behind counts unfinished players other than playerID still on a
// generation older than generation.
func (rb *roomBoards) behind(playerID int64, generation int) int {
	n := 0
	for id, g := range rb.positions {
		if id != playerID && !rb.finished[id] && g < generation {
			n++
		}
	}
	return n
}

func (rb *roomBoards) computePhase() Phase {
	latest := rb.latest().Generation
	if rb.behind(-1, latest) > 0 {
		return PhasePlayerRequested
	}
	if latest == 0 {
		return PhaseActive
	}
	return PhaseDistributed
}
