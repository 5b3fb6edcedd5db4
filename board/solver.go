package board

// Rectangle is an inclusive, normalized selection of cells.
type Rectangle struct {
	MinRow int `json:"min_row"`
	MaxRow int `json:"max_row"`
	MinCol int `json:"min_col"`
	MaxCol int `json:"max_col"`
}

// NewRectangle builds a rectangle from two opposite corners in any order.
func NewRectangle(startRow, startCol, endRow, endCol int) Rectangle {
	return Rectangle{
		MinRow: min(startRow, endRow),
		MaxRow: max(startRow, endRow),
		MinCol: min(startCol, endCol),
		MaxCol: max(startCol, endCol),
	}
}

// InBounds reports whether every cell of the rectangle lies on the board.
func (r Rectangle) InBounds() bool {
	return r.MinRow >= 0 && r.MinCol >= 0 &&
		r.MaxRow < Size && r.MaxCol < Size &&
		r.MinRow <= r.MaxRow && r.MinCol <= r.MaxCol
}

// Positions lists the cells of the rectangle in row-major order.
func (r Rectangle) Positions() []Position {
	if r.MinRow > r.MaxRow || r.MinCol > r.MaxCol {
		return nil
	}
	positions := make([]Position, 0, (r.MaxRow-r.MinRow+1)*(r.MaxCol-r.MinCol+1))
	for i := r.MinRow; i <= r.MaxRow; i++ {
		for j := r.MinCol; j <= r.MaxCol; j++ {
			positions = append(positions, Position{Row: i, Col: j})
		}
	}
	return positions
}

// prefix holds 2-D prefix sums of values and of active-tile counts so any
// rectangle is summed in O(1).
type prefix struct {
	sum   [Size + 1][Size + 1]int
	count [Size + 1][Size + 1]int
}

func newPrefix(active Grid) *prefix {
	p := &prefix{}
	for i := 0; i < Size; i++ {
		for j := 0; j < Size; j++ {
			v := active[i][j]
			c := 0
			if v != 0 {
				c = 1
			}
			p.sum[i+1][j+1] = v + p.sum[i][j+1] + p.sum[i+1][j] - p.sum[i][j]
			p.count[i+1][j+1] = c + p.count[i][j+1] + p.count[i+1][j] - p.count[i][j]
		}
	}
	return p
}

func (p *prefix) rect(r Rectangle) (sum, count int) {
	a, b, c, d := r.MinRow, r.MinCol, r.MaxRow+1, r.MaxCol+1
	sum = p.sum[c][d] - p.sum[a][d] - p.sum[c][b] + p.sum[a][b]
	count = p.count[c][d] - p.count[a][d] - p.count[c][b] + p.count[a][b]
	return sum, count
}

// Sum returns the total value and number of active tiles inside r.
// Cells off the board contribute nothing.
func Sum(active Grid, r Rectangle) (sum, count int) {
	for _, pos := range r.Positions() {
		if !pos.InBounds() {
			continue
		}
		if v := active[pos.Row][pos.Col]; v != 0 {
			sum += v
			count++
		}
	}
	return sum, count
}

// IsSolution reports whether r is on the board, holds at least one active
// tile and its active tiles add up to Target.
func IsSolution(active Grid, r Rectangle) bool {
	if !r.InBounds() {
		return false
	}
	sum, count := Sum(active, r)
	return count > 0 && sum == Target
}

// AllSolutions enumerates every solution on the board, ordered by top-left
// corner (row, then column) and then by bottom-right corner.
func AllSolutions(active Grid) []Rectangle {
	var solutions []Rectangle
	walk(active, func(r Rectangle) bool {
		solutions = append(solutions, r)
		return true
	})
	return solutions
}

// HasSolution reports whether at least one solution exists.
func HasSolution(active Grid) bool {
	found := false
	walk(active, func(Rectangle) bool {
		found = true
		return false
	})
	return found
}

// walk calls visit for each solution in enumeration order until visit
// returns false.
func walk(active Grid, visit func(Rectangle) bool) {
	p := newPrefix(active)
	for startRow := 0; startRow < Size; startRow++ {
		for startCol := 0; startCol < Size; startCol++ {
			for endRow := startRow; endRow < Size; endRow++ {
				for endCol := startCol; endCol < Size; endCol++ {
					r := Rectangle{MinRow: startRow, MaxRow: endRow, MinCol: startCol, MaxCol: endCol}
					sum, count := p.rect(r)
					if count == 0 || sum != Target {
						continue
					}
					if !visit(r) {
						return
					}
				}
			}
		}
	}
}
