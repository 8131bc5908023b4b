package nn

import (
	"math/rand"
	"time"
)

// Edge is an inbound connection owned by its target neuron. Source is the
// index of the feeding neuron in the parent layer.
type Edge struct {
	Source int
	Weight float32
}

func newEdge(source int, rng *rand.Rand) Edge {
	return Edge{Source: source, Weight: randomWeight(rng)}
}

// randomWeight draws uniformly from the open interval (-1, 1).
func randomWeight(rng *rand.Rand) float32 {
	for {
		w := rng.Float32()*2 - 1
		if w > -1 {
			return w
		}
	}
}

func ensureRNG(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
