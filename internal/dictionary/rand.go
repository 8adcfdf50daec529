package dictionary

import (
	"math/rand/v2"
	"sync"
)

// Rand is the random source used for sampling idioms.
// *rand.Rand from math/rand/v2 satisfies it but is not goroutine-safe;
// use NewRand for shared sources.
type Rand interface {
	IntN(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a goroutine-safe PCG source seeded with seed.
func NewRand(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
