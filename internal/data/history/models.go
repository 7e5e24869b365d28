package history

import "time"

const SchemaVersion = 1

// Snapshot is the persisted summary of one completed analysis run.
type Snapshot struct {
	SchemaVersion   int       `json:"schema_version"`
	RunID           string    `json:"run_id"`
	ProjectKey      string    `json:"project_key"`
	Timestamp       time.Time `json:"timestamp"`
	CommitHash      string    `json:"commit_hash,omitempty"`
	DependencyCount int       `json:"dependency_count"`
	UnusedCount     int       `json:"unused_count"`
	UnusedNames     []string  `json:"unused_names"`
	FilesScanned    int       `json:"files_scanned"`
	WarningCount    int       `json:"warning_count"`
}

// Trend compares a run against the snapshot saved before it.
type Trend struct {
	PreviousRunID  string    `json:"previous_run_id" yaml:"previous_run_id"`
	PreviousAt     time.Time `json:"previous_at" yaml:"previous_at"`
	NewlyUnused    []string  `json:"newly_unused" yaml:"newly_unused"`
	NoLongerUnused []string  `json:"no_longer_unused" yaml:"no_longer_unused"`
	DeltaUnused    int       `json:"delta_unused" yaml:"delta_unused"`

	// Runs recorded inside the history window, current run included.
	WindowRuns       int `json:"window_runs,omitempty" yaml:"window_runs,omitempty"`
	WindowPeakUnused int `json:"window_peak_unused,omitempty" yaml:"window_peak_unused,omitempty"`
}
