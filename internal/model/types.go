package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunOptions mirrors the engine options a run was started with.
type RunOptions struct {
	NumGenerations int `json:"num_generations"`
	NumParents     int `json:"num_parents"`
	NumChildren    int `json:"num_children"`
	LogLevel       int `json:"log_level"`
}

type Window struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// GenerationDiagnostics summarizes the ranked candidates of one generation.
type GenerationDiagnostics struct {
	Generation int     `json:"generation"`
	Candidates int     `json:"candidates"`
	BestScore  float64 `json:"best_score"`
	MeanScore  float64 `json:"mean_score"`
	WorstScore float64 `json:"worst_score"`
	Best       string  `json:"best"`
}

// RunRecord is the persisted summary of one finished run.
type RunRecord struct {
	VersionedRecord
	ID           string     `json:"id"`
	CreatedAtUTC time.Time  `json:"created_at_utc"`
	Challenge    string     `json:"challenge"`
	Strategy     string     `json:"strategy"`
	Seed         int64      `json:"seed"`
	Options      RunOptions `json:"options"`
	Window       *Window    `json:"window,omitempty"`
	Start        []float64  `json:"start"`
	Target       []float64  `json:"target"`

	BestByGeneration []float64               `json:"best_by_generation"`
	Diagnostics      []GenerationDiagnostics `json:"diagnostics"`

	Winner      string    `json:"winner"`
	Coordinates []float64 `json:"coordinates"`
	Magnitude   float64   `json:"magnitude"`
	WinnerScore float64   `json:"winner_score"`
}
