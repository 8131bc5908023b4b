package nn

import "errors"

var (
	// ErrConstruction reports an invalid shape or an illegal full-mesh binding.
	ErrConstruction = errors.New("invalid network construction")
	// ErrShape reports an input or desired vector whose length does not
	// match the layer it is applied to.
	ErrShape = errors.New("vector shape mismatch")
	// ErrInvalidInputRange reports an input value outside [0, 1].
	ErrInvalidInputRange = errors.New("input value not normalized to [0, 1]")
	// ErrInvalidLayerRole reports an operation invoked on a layer of the wrong role.
	ErrInvalidLayerRole = errors.New("operation not valid for layer role")
	// ErrInvalidGenerationCap reports a negative cap, or an unbounded run without a stop predicate.
	ErrInvalidGenerationCap = errors.New("invalid generation cap")
)
