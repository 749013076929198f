package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Summary describes a sample of per-trial values.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type TeamOutcome struct {
	Name       string         `json:"name"`
	Start      int            `json:"start"`
	Active     int            `json:"active"`
	Safe       int            `json:"safe"`
	CapturedBy map[string]int `json:"captured_by,omitempty"`
}

// RunRecord is one interactive run of a scenario.
type RunRecord struct {
	VersionedRecord
	ID           string        `json:"id"`
	Scenario     string        `json:"scenario"`
	Seed         int64         `json:"seed"`
	Steps        int           `json:"steps"`
	EndTime      float64       `json:"end_time"`
	Ended        bool          `json:"ended"`
	Outcome      string        `json:"outcome"`
	Winner       string        `json:"winner,omitempty"`
	Decider      string        `json:"decider,omitempty"`
	Teams        []TeamOutcome `json:"teams"`
	Events       int           `json:"events"`
	CreatedAtUTC string        `json:"created_at_utc"`
}

type ValuationRecord struct {
	Team             string    `json:"team"`
	Name             string    `json:"name"`
	Kind             string    `json:"kind"`
	Cooperation      bool      `json:"cooperation"`
	Full             []float64 `json:"full"`
	Partial          []float64 `json:"partial,omitempty"`
	FullSummary      Summary   `json:"full_summary"`
	PartialSummary   Summary   `json:"partial_summary"`
	CooperationValue float64   `json:"cooperation_value"`
}

// BatchRecord is the aggregate of one batch of trials.
type BatchRecord struct {
	VersionedRecord
	ID           string            `json:"id"`
	Scenario     string            `json:"scenario"`
	Seed         int64             `json:"seed"`
	Trials       int               `json:"trials"`
	Workers      int               `json:"workers"`
	Wins         map[string]int    `json:"wins,omitempty"`
	Valuations   []ValuationRecord `json:"valuations"`
	DurationMS   int64             `json:"duration_ms"`
	CreatedAtUTC string            `json:"created_at_utc"`
}
