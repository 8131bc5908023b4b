// Package sessions provides ready-made training sessions: the two-input logic
// truth tables and sessions loaded from CSV files.
package sessions

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"neuralmesh/internal/nn"
)

var ErrUnknownSession = errors.New("unknown session")

type truthCase struct {
	in   [2]float32
	want float32
}

var truthTables = map[string][]truthCase{
	"xor":  {{in: [2]float32{0, 0}, want: 0}, {in: [2]float32{0, 1}, want: 1}, {in: [2]float32{1, 0}, want: 1}, {in: [2]float32{1, 1}, want: 0}},
	"and":  {{in: [2]float32{0, 0}, want: 0}, {in: [2]float32{0, 1}, want: 0}, {in: [2]float32{1, 0}, want: 0}, {in: [2]float32{1, 1}, want: 1}},
	"or":   {{in: [2]float32{0, 0}, want: 0}, {in: [2]float32{0, 1}, want: 1}, {in: [2]float32{1, 0}, want: 1}, {in: [2]float32{1, 1}, want: 1}},
	"nand": {{in: [2]float32{0, 0}, want: 1}, {in: [2]float32{0, 1}, want: 1}, {in: [2]float32{1, 0}, want: 1}, {in: [2]float32{1, 1}, want: 0}},
}

// Get returns a fresh session for a built-in truth table.
func Get(name string) (*nn.TrainingSession, error) {
	cases, ok := truthTables[strings.TrimSpace(strings.ToLower(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, name)
	}
	session := nn.NewTrainingSession()
	for _, c := range cases {
		session.Add([]float32{c.in[0], c.in[1]}, []float32{c.want})
	}
	return session, nil
}

func Names() []string {
	names := make([]string, 0, len(truthTables))
	for name := range truthTables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shape reports the input and output widths of a built-in session.
func Shape(name string) (inputs, outputs int, err error) {
	if _, ok := truthTables[strings.TrimSpace(strings.ToLower(name))]; !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownSession, name)
	}
	return 2, 1, nil
}
