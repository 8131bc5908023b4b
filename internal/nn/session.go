package nn

import "fmt"

// TestUnit pairs one input vector with the outputs the network should produce.
type TestUnit struct {
	Inputs  []float32 `json:"inputs"`
	Desired []float32 `json:"desired"`
}

// StopPredicate accepts a total error once training is good enough.
type StopPredicate func(totalError float32) bool

// StopAtError stops once the total error is at or below threshold.
func StopAtError(threshold float32) StopPredicate {
	return func(totalError float32) bool {
		return totalError <= threshold
	}
}

// StopAt5Percent tolerates a total error of 0.05.
var StopAt5Percent = StopAtError(0.05)

// TrainingSession is one generation's worth of test units. TotalError holds
// the error of the most recently processed unit.
type TrainingSession struct {
	Units            []TestUnit
	TotalError       float32
	Stop             StopPredicate
	OnGenerationDone func(*Network)
}

func NewTrainingSession(units ...TestUnit) *TrainingSession {
	return &TrainingSession{Units: units}
}

// Add appends a unit and returns the session for chaining.
func (s *TrainingSession) Add(inputs, desired []float32) *TrainingSession {
	s.Units = append(s.Units, TestUnit{Inputs: inputs, Desired: desired})
	return s
}

// validate checks every unit against shape so that a generation never stops
// half way on a malformed unit.
func (s *TrainingSession) validate(shape Shape) error {
	if s == nil || len(s.Units) == 0 {
		return fmt.Errorf("%w: training session has no test units", ErrShape)
	}
	for i, unit := range s.Units {
		if len(unit.Inputs) != shape.Inputs {
			return fmt.Errorf("%w: unit %d has %d inputs, network takes %d", ErrShape, i, len(unit.Inputs), shape.Inputs)
		}
		if len(unit.Desired) != shape.Outputs {
			return fmt.Errorf("%w: unit %d has %d desired values, network has %d outputs", ErrShape, i, len(unit.Desired), shape.Outputs)
		}
		for j, value := range unit.Inputs {
			if !normalized(value) {
				return fmt.Errorf("%w: unit %d input %d = %v", ErrInvalidInputRange, i, j, value)
			}
		}
	}
	return nil
}

func (s *TrainingSession) notifyGenerationDone(n *Network) {
	if handler := s.OnGenerationDone; handler != nil {
		handler(n)
	}
}
