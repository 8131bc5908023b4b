package nn

import "math/rand"

// DefaultLearningRate is used until Train sets an explicit rate.
const DefaultLearningRate float32 = 0.15

type config struct {
	rng              *rand.Rand
	name             string
	hiddenActivation string
	outputActivation string
	initialBias      float32
	learningRate     float32
	workers          int
}

func defaultConfig() config {
	return config{
		hiddenActivation: ActivationSigmoid,
		outputActivation: ActivationSigmoid,
		learningRate:     DefaultLearningRate,
		workers:          1,
	}
}

type Option func(*config)

// WithRand injects the random source used for weight initialization.
func WithRand(rng *rand.Rand) Option {
	return func(c *config) {
		c.rng = rng
	}
}

func WithSeed(seed int64) Option {
	return func(c *config) {
		c.rng = rand.New(rand.NewSource(seed))
	}
}

func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

func WithHiddenActivation(name string) Option {
	return func(c *config) {
		c.hiddenActivation = name
	}
}

// WithOutputActivation is ignored for softmax shapes.
func WithOutputActivation(name string) Option {
	return func(c *config) {
		c.outputActivation = name
	}
}

// WithInitialBias sets the bias every hidden and output neuron starts with.
func WithInitialBias(bias float32) Option {
	return func(c *config) {
		c.initialBias = bias
	}
}

func WithLearningRate(rate float32) Option {
	return func(c *config) {
		c.learningRate = rate
	}
}

// WithWorkers spreads each layer's forward computation over n goroutines.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.workers = n
	}
}
