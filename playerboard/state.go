// playerboard/state.go
package playerboard

import (
	"time"

	"github.com/wfunc/fruitbox/board"
)

// DefaultTimeRemaining is the per-player time budget in seconds (1:30).
const DefaultTimeRemaining = 90

// State is one immutable snapshot of a player's view of a shared board.
// Transitions return a new State; the caller keeps the latest as current.
type State struct {
	PlayerID      int64
	RoomCode      string
	Generation    int
	Score         int
	TimeRemaining int
	Finished      bool
	FinalScore    int
	NeedsNewBoard bool
	Sequence      int64
	CreatedAt     time.Time

	collected [board.Size][board.Size]bool
}

// SeedOption adjusts a freshly seeded state.
type SeedOption func(*State)

// WithScore carries an existing score onto a new board.
func WithScore(score int) SeedOption {
	return func(s *State) {
		if score > 0 {
			s.Score = score
		}
	}
}

// WithTimeRemaining carries the remaining time onto a new board.
func WithTimeRemaining(seconds int) SeedOption {
	return func(s *State) {
		s.TimeRemaining = max(seconds, 0)
	}
}

// Seed builds the initial state of playerID on cfg with every tile
// uncollected.
func Seed(cfg *board.Configuration, playerID int64, opts ...SeedOption) State {
	s := State{
		PlayerID:      playerID,
		RoomCode:      cfg.RoomCode,
		Generation:    cfg.Generation,
		TimeRemaining: DefaultTimeRemaining,
		CreatedAt:     time.Now(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Carry seeds playerID on cfg while keeping score and time of prev.
func Carry(prev State, cfg *board.Configuration) State {
	next := Seed(cfg, prev.PlayerID, WithScore(prev.Score), WithTimeRemaining(prev.TimeRemaining))
	next.Sequence = prev.Sequence + 1
	return next
}

// Collected reports whether the player already took the tile at p.
func (s State) Collected(p board.Position) bool {
	if !p.InBounds() {
		return false
	}
	return s.collected[p.Row][p.Col]
}

// CollectedPositions lists collected cells in row-major order.
func (s State) CollectedPositions() []board.Position {
	var out []board.Position
	for i := 0; i < board.Size; i++ {
		for j := 0; j < board.Size; j++ {
			if s.collected[i][j] {
				out = append(out, board.Position{Row: i, Col: j})
			}
		}
	}
	return out
}

// Active returns the tiles of cfg the player has not collected yet.
func (s State) Active(cfg *board.Configuration) board.Grid {
	grid := cfg.Cells()
	for i := 0; i < board.Size; i++ {
		for j := 0; j < board.Size; j++ {
			if s.collected[i][j] {
				grid[i][j] = 0
			}
		}
	}
	return grid
}

// VisibleBoard is what the client receives: collected cells are empty,
// everything else shows its value. Collected flags never leave the server.
func (s State) VisibleBoard(cfg *board.Configuration) board.Grid {
	return s.Active(cfg)
}

// HasAvailableMoves reports whether any solution remains for this player.
func (s State) HasAvailableMoves(cfg *board.Configuration) bool {
	return board.HasSolution(s.Active(cfg))
}

// next returns a copy stamped as the following snapshot.
func (s State) next() State {
	s.Sequence++
	s.CreatedAt = time.Now()
	return s
}

// WithNeedsNewBoard marks the snapshot as waiting for a new board.
func (s State) WithNeedsNewBoard() State {
	n := s.next()
	n.NeedsNewBoard = true
	return n
}

// WithTime lowers the remaining time. The server-held value never grows.
func (s State) WithTime(seconds int) State {
	n := s.next()
	n.TimeRemaining = max(min(seconds, s.TimeRemaining), 0)
	return n
}

// Finish freezes the score as final.
func (s State) Finish() State {
	n := s.next()
	n.Finished = true
	n.FinalScore = s.Score
	return n
}
