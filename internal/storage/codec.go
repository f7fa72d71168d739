package storage

import (
	"encoding/json"
	"errors"
	"math"
	"sort"

	"evolvo/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// EncodeRun stamps missing versions and clamps non-finite scores, which JSON
// cannot carry.
func EncodeRun(run model.RunRecord) ([]byte, error) {
	if run.SchemaVersion == 0 && run.CodecVersion == 0 {
		run.VersionedRecord = CurrentVersion()
	}
	run.WinnerScore = finite(run.WinnerScore)
	run.Magnitude = finite(run.Magnitude)
	if len(run.BestByGeneration) > 0 {
		history := make([]float64, len(run.BestByGeneration))
		for i, v := range run.BestByGeneration {
			history[i] = finite(v)
		}
		run.BestByGeneration = history
	}
	if len(run.Diagnostics) > 0 {
		diagnostics := make([]model.GenerationDiagnostics, len(run.Diagnostics))
		for i, d := range run.Diagnostics {
			d.BestScore = finite(d.BestScore)
			d.MeanScore = finite(d.MeanScore)
			d.WorstScore = finite(d.WorstScore)
			diagnostics[i] = d
		}
		run.Diagnostics = diagnostics
	}
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

// finite maps NaN to 0 and infinities to the largest finite values.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	default:
		return v
	}
}

// sortNewestFirst orders by creation time, then id for a stable listing.
func sortNewestFirst(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC.Equal(runs[j].CreatedAtUTC) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAtUTC.After(runs[j].CreatedAtUTC)
	})
}

func applyLimit(runs []model.RunRecord, limit int) []model.RunRecord {
	if limit > 0 && len(runs) > limit {
		return runs[:limit]
	}
	return runs
}
