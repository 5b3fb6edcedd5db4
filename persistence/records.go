package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/wfunc/fruitbox/board"
	"github.com/wfunc/fruitbox/models"
	"github.com/wfunc/fruitbox/playerboard"
)

// BoardRecord encodes a configuration as a game_boards row.
func BoardRecord(cfg *board.Configuration) (*models.GormBoard, error) {
	cells, err := json.Marshal(cfg.Cells())
	if err != nil {
		return nil, fmt.Errorf("encode board: %w", err)
	}
	return &models.GormBoard{
		RoomCode:   cfg.RoomCode,
		Generation: cfg.Generation,
		Cells:      string(cells),
		CreatedAt:  cfg.CreatedAt,
	}, nil
}

// DecodeBoard restores the tile values of a stored configuration.
func DecodeBoard(rec *models.GormBoard) (board.Grid, error) {
	var grid board.Grid
	if err := json.Unmarshal([]byte(rec.Cells), &grid); err != nil {
		return grid, fmt.Errorf("decode board %s/%d: %w", rec.RoomCode, rec.Generation, err)
	}
	return grid, nil
}

// StateRecord encodes a player snapshot. Collected cells are stored as
// [[row,col],...] in row-major order.
func StateRecord(s playerboard.State) (*models.GormPlayerState, error) {
	positions := s.CollectedPositions()
	pairs := make([][2]int, 0, len(positions))
	for _, p := range positions {
		pairs = append(pairs, [2]int{p.Row, p.Col})
	}
	collected, err := json.Marshal(pairs)
	if err != nil {
		return nil, fmt.Errorf("encode collected: %w", err)
	}
	return &models.GormPlayerState{
		PlayerID:      s.PlayerID,
		RoomCode:      s.RoomCode,
		Generation:    s.Generation,
		Sequence:      s.Sequence,
		Collected:     string(collected),
		Score:         s.Score,
		TimeRemaining: s.TimeRemaining,
		Finished:      s.Finished,
		FinalScore:    s.FinalScore,
		NeedsNewBoard: s.NeedsNewBoard,
		CreatedAt:     s.CreatedAt,
	}, nil
}

// DecodeCollected returns the collected positions of a stored snapshot.
func DecodeCollected(rec *models.GormPlayerState) ([]board.Position, error) {
	var pairs [][2]int
	if err := json.Unmarshal([]byte(rec.Collected), &pairs); err != nil {
		return nil, fmt.Errorf("decode collected: %w", err)
	}
	out := make([]board.Position, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, board.Position{Row: p[0], Col: p[1]})
	}
	return out, nil
}

// MoveRecord builds the audit row of an accepted selection together with
// the board the player sees afterwards.
func MoveRecord(roomID int64, roomCode string, playerID int64, rect board.Rectangle, points int, visible board.Grid) (*models.GormMove, error) {
	state, err := json.Marshal(visible)
	if err != nil {
		return nil, fmt.Errorf("encode move board: %w", err)
	}
	return &models.GormMove{
		RoomID:       roomID,
		RoomCode:     roomCode,
		PlayerID:     playerID,
		StartRow:     rect.MinRow,
		StartCol:     rect.MinCol,
		EndRow:       rect.MaxRow,
		EndCol:       rect.MaxCol,
		PointsEarned: points,
		BoardState:   string(state),
	}, nil
}
