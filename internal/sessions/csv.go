package sessions

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"neuralmesh/internal/nn"
)

// LoadCSV reads a session from path. Each row holds inputs values followed by
// outputs desired values. A leading non-numeric row is treated as a header.
func LoadCSV(path string, inputs, outputs int) (*nn.TrainingSession, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("session csv path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session csv %s: %w", path, err)
	}
	defer f.Close()

	session, err := ReadCSV(f, inputs, outputs)
	if err != nil {
		return nil, fmt.Errorf("session csv %s: %w", path, err)
	}
	return session, nil
}

func ReadCSV(in io.Reader, inputs, outputs int) (*nn.TrainingSession, error) {
	if inputs <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("%w: need positive input and output widths, got %d and %d", nn.ErrShape, inputs, outputs)
	}
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	session := nn.NewTrainingSession()
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++
		if blankRecord(record) {
			continue
		}
		if row == 1 && isHeader(record) {
			continue
		}
		if len(record) != inputs+outputs {
			return nil, fmt.Errorf("%w: row %d has %d fields, want %d", nn.ErrShape, row, len(record), inputs+outputs)
		}

		values := make([]float32, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
			if err != nil {
				return nil, fmt.Errorf("parse row %d field %d: %w", row, i+1, err)
			}
			if i < inputs && !(v >= 0 && v <= 1) {
				return nil, fmt.Errorf("%w: row %d input %d = %v", nn.ErrInvalidInputRange, row, i+1, v)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d desired %d = %v", nn.ErrShape, row, i+1-inputs, v)
			}
			values[i] = float32(v)
		}
		session.Add(values[:inputs:inputs], values[inputs:])
	}

	if len(session.Units) == 0 {
		return nil, fmt.Errorf("%w: no test units", nn.ErrShape)
	}
	return session, nil
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func isHeader(record []string) bool {
	for _, field := range record {
		if _, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err != nil {
			return true
		}
	}
	return false
}
