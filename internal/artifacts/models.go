package artifacts

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

var statusSet = map[Status]struct{}{
	StatusRunning:   {},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusAborted:   {},
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	s := Status(value)
	_, ok := statusSet[s]
	return s, ok
}

// IsTerminal reports whether the run has stopped.
func (s Status) IsTerminal() bool {
	return s != StatusRunning
}

// Run is one invocation of the processor against a source video.
type Run struct {
	ID           string
	Source       string
	OutputDir    string
	Status       Status
	SettingsJSON string
	PlanJSON     string
	VideoJSON    string
	TileCount    int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// DecodeSettings unmarshals the stored settings into v.
func (r *Run) DecodeSettings(v any) error {
	return decodeJSON(r.SettingsJSON, v)
}

// DecodePlan unmarshals the stored tile plan into v.
func (r *Run) DecodePlan(v any) error {
	return decodeJSON(r.PlanJSON, v)
}

// DecodeVideo unmarshals the stored source description into v.
func (r *Run) DecodeVideo(v any) error {
	return decodeJSON(r.VideoJSON, v)
}

func decodeJSON(raw string, v any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

// NewRun describes a run about to start.
type NewRun struct {
	Source    string
	OutputDir string
	Settings  any
	Plan      any
	Video     any
	TileCount int
}

// Artifact is a published tile output file.
type Artifact struct {
	ID        int64
	RunID     string
	Tile      int
	Kind      string
	Path      string
	Bytes     int64
	SHA256    string
	Layers    int
	Width     int
	Height    int
	CreatedAt time.Time
}

// FileName returns the base name used when bundling the artifact.
func (a Artifact) FileName() string {
	return TileFileName(a.Tile, a.Kind)
}
