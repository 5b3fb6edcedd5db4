package playerboard

import "github.com/wfunc/fruitbox/board"

// Collect marks positions as collected and awards one point per newly
// collected tile. Off-board and already collected positions are ignored.
// No sum check happens here; callers validate the selection first.
func Collect(s State, positions []board.Position) (State, int) {
	n := s.next()
	gained := 0
	for _, p := range positions {
		if !p.InBounds() || n.collected[p.Row][p.Col] {
			continue
		}
		n.collected[p.Row][p.Col] = true
		gained++
	}
	n.Score += gained
	return n, gained
}
