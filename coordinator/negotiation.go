package coordinator

import (
	"fmt"

	"github.com/wfunc/fruitbox/board"
	"github.com/wfunc/fruitbox/models"
	"github.com/wfunc/fruitbox/playerboard"
)

// Renewal describes the outcome of a new-board request.
type Renewal struct {
	State playerboard.State
	// Board is the configuration the player moved to, nil when the
	// player still had moves and nothing changed.
	Board *board.Configuration
	// Created is set when this request built a new generation rather than
	// adopting one another player already moved to.
	Created bool
	// Waiting is set while other unfinished players are still on an older
	// generation.
	Waiting bool
}

// Move describes a committed or rejected selection.
type Move struct {
	Before  playerboard.State
	After   playerboard.State
	Board   *board.Configuration
	Points  int
	Renewal *Renewal
}

// Collect validates rect against the player's active tiles and collects
// it. A selection that is not a solution leaves the state untouched and
// returns ErrInvalidSelection. When the collection exhausts the board the
// player is moved to a newer generation right away.
func (c *Coordinator) Collect(code string, playerID int64, rect board.Rectangle) (Move, error) {
	rb, ln, err := c.lane(code, playerID)
	if err != nil {
		return Move{}, err
	}

	ln.mutex.Lock()
	defer ln.mutex.Unlock()

	st := ln.current
	cfg := rb.config(st.Generation)
	move := Move{Before: st, After: st, Board: cfg}
	if st.Finished {
		return move, models.ErrGameFinished
	}
	if !board.IsSolution(st.Active(cfg), rect) {
		return move, fmt.Errorf("%w: rows %d-%d cols %d-%d",
			models.ErrInvalidSelection, rect.MinRow, rect.MaxRow, rect.MinCol, rect.MaxCol)
	}

	after, points := playerboard.Collect(st, rect.Positions())
	ln.current = after
	c.recorder.StateCommitted(after)
	move.After = after
	move.Points = points

	if !after.HasAvailableMoves(cfg) {
		renewal := c.renew(rb, ln)
		move.Renewal = &renewal
	}
	return move, nil
}

// RequestNewBoard runs the new-board negotiation for an exhausted player:
// adopt the newest generation if another player already created one,
// otherwise build one now for this player alone. Score and time carry over.
// A player who still has moves keeps the current board.
func (c *Coordinator) RequestNewBoard(code string, playerID int64) (Renewal, error) {
	rb, ln, err := c.lane(code, playerID)
	if err != nil {
		return Renewal{}, err
	}

	ln.mutex.Lock()
	defer ln.mutex.Unlock()

	st := ln.current
	if st.Finished {
		return Renewal{State: st}, models.ErrGameFinished
	}
	if st.HasAvailableMoves(rb.config(st.Generation)) {
		rb.mutex.Lock()
		waiting := rb.behind(playerID, st.Generation) > 0
		rb.mutex.Unlock()
		return Renewal{State: st, Waiting: waiting}, nil
	}
	return c.renew(rb, ln), nil
}

// renew moves the lane's player to a newer generation. The caller holds
// the lane lock; the room lock makes "is there a newer generation, else
// create one" a single step for concurrent requesters.
func (c *Coordinator) renew(rb *roomBoards, ln *lane) Renewal {
	rb.mutex.Lock()
	defer rb.mutex.Unlock()

	st := ln.current
	cfg := rb.latest()
	created := false
	if cfg.Generation <= st.Generation {
		st = st.WithNeedsNewBoard()
		ln.current = st
		c.recorder.StateCommitted(st)

		cfg = board.NewConfiguration(rb.code, cfg.Generation+1, c.generator.Generate())
		rb.generations = append(rb.generations, cfg)
		c.recorder.BoardCreated(cfg)
		created = true
	}

	next := playerboard.Carry(st, cfg)
	ln.current = next
	rb.positions[next.PlayerID] = cfg.Generation
	rb.phase = rb.computePhase()
	c.recorder.StateCommitted(next)

	return Renewal{
		State:   next,
		Board:   cfg,
		Created: created,
		Waiting: rb.behind(next.PlayerID, cfg.Generation) > 0,
	}
}

// Finish marks the player as done and reports whether every player of the
// room has finished. Finishing twice is harmless.
func (c *Coordinator) Finish(code string, playerID int64) (playerboard.State, bool, error) {
	rb, ln, err := c.lane(code, playerID)
	if err != nil {
		return playerboard.State{}, false, err
	}

	ln.mutex.Lock()
	defer ln.mutex.Unlock()

	if !ln.current.Finished {
		ln.current = ln.current.Finish()
		c.recorder.StateCommitted(ln.current)
	}

	rb.mutex.Lock()
	defer rb.mutex.Unlock()
	rb.finished[playerID] = true
	rb.phase = rb.computePhase()
	return ln.current, len(rb.finished) == len(rb.players), nil
}

// SyncTime reconciles the client countdown with the server-held time. The
// stored value only ever decreases.
func (c *Coordinator) SyncTime(code string, playerID int64, seconds int) (playerboard.State, error) {
	_, ln, err := c.lane(code, playerID)
	if err != nil {
		return playerboard.State{}, err
	}

	ln.mutex.Lock()
	defer ln.mutex.Unlock()

	next := ln.current.WithTime(seconds)
	if next.TimeRemaining == ln.current.TimeRemaining {
		return ln.current, nil
	}
	ln.current = next
	c.recorder.StateCommitted(next)
	return next, nil
}
