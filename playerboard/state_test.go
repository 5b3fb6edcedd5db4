package playerboard

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/fruitbox/board"
)

func newConfig(seed int64) *board.Configuration {
	return board.NewConfiguration("ROOM01", 0, board.NewGenerator(rand.NewSource(seed)).Generate())
}

func TestSeed_Defaults(t *testing.T) {
	cfg := newConfig(1)
	s := Seed(cfg, 7)

	assert.Equal(t, int64(7), s.PlayerID)
	assert.Equal(t, "ROOM01", s.RoomCode)
	assert.Equal(t, 0, s.Score)
	assert.Equal(t, DefaultTimeRemaining, s.TimeRemaining)
	assert.Empty(t, s.CollectedPositions())
	assert.Equal(t, cfg.Cells(), s.VisibleBoard(cfg))
}

func TestSeed_CarryOver(t *testing.T) {
	cfg := newConfig(2)
	s := Seed(cfg, 1, WithScore(17), WithTimeRemaining(33))
	assert.Equal(t, 17, s.Score)
	assert.Equal(t, 33, s.TimeRemaining)

	next := board.NewConfiguration("ROOM01", 1, board.NewGenerator(rand.NewSource(3)).Generate())
	carried := Carry(s, next)
	assert.Equal(t, 17, carried.Score)
	assert.Equal(t, 33, carried.TimeRemaining)
	assert.Equal(t, 1, carried.Generation)
	assert.Greater(t, carried.Sequence, s.Sequence)
}

func TestCollect_PairScoresPerTile(t *testing.T) {
	var g board.Grid
	for i := 0; i < board.Size; i++ {
		for j := 0; j < board.Size; j++ {
			g[i][j] = 9
		}
	}
	g[0][0] = 4
	g[0][1] = 6
	cfg := board.NewConfiguration("ROOM01", 0, g)
	s := Seed(cfg, 1)

	rect := board.NewRectangle(0, 0, 0, 1)
	require.True(t, board.IsSolution(s.Active(cfg), rect))

	after, gained := Collect(s, rect.Positions())
	assert.Equal(t, 2, gained)
	assert.Equal(t, 2, after.Score)
	assert.Equal(t, 0, s.Score, "previous snapshot is untouched")
}

func TestCollect_Idempotent(t *testing.T) {
	cfg := newConfig(4)
	s := Seed(cfg, 1)
	positions := []board.Position{{Row: 1, Col: 1}, {Row: 1, Col: 2}}

	once, gained := Collect(s, positions)
	require.Equal(t, 2, gained)

	twice, gained := Collect(once, positions)
	assert.Equal(t, 0, gained)
	assert.Equal(t, once.Score, twice.Score)
}

func TestCollect_IgnoresOffBoard(t *testing.T) {
	cfg := newConfig(5)
	s := Seed(cfg, 1)

	after, gained := Collect(s, []board.Position{{Row: -1, Col: 0}, {Row: 3, Col: 10}, {Row: 2, Col: 2}})
	assert.Equal(t, 1, gained)
	assert.Equal(t, []board.Position{{Row: 2, Col: 2}}, after.CollectedPositions())
}

func TestVisibleBoard_HidesCollected(t *testing.T) {
	cfg := newConfig(6)
	s, _ := Collect(Seed(cfg, 1), board.NewRectangle(2, 2, 4, 5).Positions())

	visible := s.VisibleBoard(cfg)
	for i := 0; i < board.Size; i++ {
		for j := 0; j < board.Size; j++ {
			p := board.Position{Row: i, Col: j}
			if s.Collected(p) {
				assert.Zero(t, visible[i][j])
			} else {
				assert.Equal(t, cfg.Value(p), visible[i][j])
			}
		}
	}
}

func TestHasAvailableMoves_Deterministic(t *testing.T) {
	cfg := newConfig(7)
	s := Seed(cfg, 1)
	assert.Equal(t, s.HasAvailableMoves(cfg), s.HasAvailableMoves(cfg))

	all := board.NewRectangle(0, 0, board.Size-1, board.Size-1)
	cleared, _ := Collect(s, all.Positions())
	assert.False(t, cleared.HasAvailableMoves(cfg))
}

func TestWithTime_NeverIncreases(t *testing.T) {
	s := Seed(newConfig(8), 1)
	lower := s.WithTime(40)
	assert.Equal(t, 40, lower.TimeRemaining)
	assert.Equal(t, 40, lower.WithTime(80).TimeRemaining)
	assert.Equal(t, 0, lower.WithTime(-5).TimeRemaining)
}

func TestFinish_FreezesScore(t *testing.T) {
	cfg := newConfig(9)
	s, _ := Collect(Seed(cfg, 1), []board.Position{{Row: 0, Col: 0}})
	done := s.Finish()
	assert.True(t, done.Finished)
	assert.Equal(t, 1, done.FinalScore)
}
