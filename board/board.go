// board/board.go
package board

import "time"

const (
	// Size is the number of rows and columns of every board.
	Size = 10
	// Target is the sum a selection must reach to be collected.
	Target = 10

	MinValue = 1
	MaxValue = 9
)

// Grid holds tile values by row and column. 0 marks an empty cell.
type Grid [Size][Size]int

// Position addresses a single cell.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// InBounds reports whether the position lies on the board.
func (p Position) InBounds() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

// Count returns the number of non-empty cells.
func (g Grid) Count() int {
	n := 0
	for i := 0; i < Size; i++ {
		for j := 0; j < Size; j++ {
			if g[i][j] != 0 {
				n++
			}
		}
	}
	return n
}

// Configuration is one generation of a room's shared board. It is never
// mutated after creation; cells are only handed out as copies.
type Configuration struct {
	RoomCode   string
	Generation int
	CreatedAt  time.Time
	cells      Grid
}

// NewConfiguration wraps generated cells into an immutable configuration.
func NewConfiguration(roomCode string, generation int, cells Grid) *Configuration {
	return &Configuration{
		RoomCode:   roomCode,
		Generation: generation,
		CreatedAt:  time.Now(),
		cells:      cells,
	}
}

// Value returns the tile value at p, or 0 when p is off the board.
func (c *Configuration) Value(p Position) int {
	if !p.InBounds() {
		return 0
	}
	return c.cells[p.Row][p.Col]
}

// Cells returns a copy of the tile values.
func (c *Configuration) Cells() Grid {
	return c.cells
}
