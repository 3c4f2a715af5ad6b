package processor

import (
	"sort"
	"time"

	"slyce/internal/artifacts"
	"slyce/internal/tile"
	"slyce/internal/tileplan"
)

// TileResult reports what happened to one planned tile.
type TileResult struct {
	Tile     int           `json:"tile"`
	Kind     tile.Kind     `json:"kind"`
	Frames   int           `json:"frames"`
	Layers   int           `json:"layers"`
	Path     string        `json:"path,omitempty"`
	Bytes    int64         `json:"bytes,omitempty"`
	SHA256   string        `json:"sha256,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Failed reports whether the tile produced no artifact.
func (r TileResult) Failed() bool { return r.Error != "" }

// Summary describes a finished run.
type Summary struct {
	RunID         string            `json:"runId"`
	RunDir        string            `json:"runDir"`
	LogPath       string            `json:"logPath,omitempty"`
	Status        artifacts.Status  `json:"status"`
	Plan          tileplan.TilePlan `json:"plan"`
	FramesRead    int               `json:"framesRead"`
	FramesSkipped int               `json:"framesSkipped"`
	Tiles         []TileResult      `json:"tiles"`
	Elapsed       time.Duration     `json:"elapsed"`
}

// Published returns the number of tiles that produced an artifact.
func (s Summary) Published() int {
	n := 0
	for _, t := range s.Tiles {
		if !t.Failed() {
			n++
		}
	}
	return n
}

// FailedTiles returns the tiles that produced no artifact.
func (s Summary) FailedTiles() []TileResult {
	var out []TileResult
	for _, t := range s.Tiles {
		if t.Failed() {
			out = append(out, t)
		}
	}
	return out
}

// FramesPerSecond is the ingestion throughput for the run.
func (s Summary) FramesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.FramesRead) / s.Elapsed.Seconds()
}

func (s *Summary) sortTiles() {
	sort.Slice(s.Tiles, func(i, j int) bool { return s.Tiles[i].Tile < s.Tiles[j].Tile })
}
