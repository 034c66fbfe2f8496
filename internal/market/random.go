package market

import (
	"math/rand"
	"time"
)

// Source is the random source consumed by the price model.
// *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	// Intn returns a value in [0,n).
	Intn(n int) int
}

// Clock returns the current wall-clock time.
type Clock func() time.Time

func newDefaultSource() Source {
	return rand.New(rand.NewSource(time.Now().UTC().UnixNano()))
}

// randomInt returns a uniform integer in [lo, hi].
func randomInt(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}
