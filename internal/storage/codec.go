package storage

import (
	"encoding/json"

	"github.com/pkg/errors"

	"neuralmesh/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	ErrVersionMismatch = errors.New("record version mismatch")
	ErrMissingID       = errors.New("record id is required")
)

// CurrentVersion is the version stamp new records are written with.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeSnapshot(s model.Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrapf(err, "encode snapshot %s", s.ID)
	}
	return data, nil
}

func DecodeSnapshot(data []byte) (model.Snapshot, error) {
	var snapshot model.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.Snapshot{}, errors.Wrap(err, "decode snapshot")
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.Snapshot{}, err
	}
	return snapshot, nil
}

func EncodeRun(r model.TrainingRun) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrapf(err, "encode run %s", r.RunID)
	}
	return data, nil
}

func DecodeRun(data []byte) (model.TrainingRun, error) {
	var run model.TrainingRun
	if err := json.Unmarshal(data, &run); err != nil {
		return model.TrainingRun{}, errors.Wrap(err, "decode run")
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.TrainingRun{}, err
	}
	return run, nil
}

func EncodeErrorHistory(history []float64) ([]byte, error) {
	data, err := json.Marshal(history)
	if err != nil {
		return nil, errors.Wrap(err, "encode error history")
	}
	return data, nil
}

func DecodeErrorHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, errors.Wrap(err, "decode error history")
	}
	return history, nil
}

func summarize(s model.Snapshot) model.SnapshotSummary {
	return model.SnapshotSummary{
		ID:          s.ID,
		Name:        s.Name,
		Generations: s.Generations,
		TotalError:  s.TotalError,
	}
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return errors.Wrapf(ErrVersionMismatch, "schema=%d codec=%d", v.SchemaVersion, v.CodecVersion)
	}
	return nil
}
