package board

import (
	"math/rand"
	"sync"
	"time"
)

// Generator fills fresh boards with uniformly random tile values.
// Boards are not checked for solvability.
type Generator struct {
	rng   *rand.Rand
	mutex sync.Mutex
}

// NewGenerator creates a generator drawing from src. A nil src is seeded
// from the clock.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Generator{rng: rand.New(src)}
}

// Generate returns a full grid with every value in MinValue..MaxValue.
func (g *Generator) Generate() Grid {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	var grid Grid
	for i := 0; i < Size; i++ {
		for j := 0; j < Size; j++ {
			grid[i][j] = MinValue + g.rng.Intn(MaxValue-MinValue+1)
		}
	}
	return grid
}
