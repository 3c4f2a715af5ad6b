package artifacts

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const runColumns = "id, source, output_dir, status, settings_json, plan_json, video_json, tile_count, error_message, created_at, updated_at, finished_at"

const artifactColumns = "id, run_id, tile, kind, path, bytes, sha256, layers, width, height, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (*Run, error) {
	var (
		run         Run
		statusStr   string
		settings    sql.NullString
		plan        sql.NullString
		video       sql.NullString
		errorMsg    sql.NullString
		createdRaw  string
		updatedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Source,
		&run.OutputDir,
		&statusStr,
		&settings,
		&plan,
		&video,
		&run.TileCount,
		&errorMsg,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.Status = Status(statusStr)
	run.SettingsJSON = settings.String
	run.PlanJSON = plan.String
	run.VideoJSON = video.String
	run.ErrorMessage = errorMsg.String
	if t, err := parseTimeString(createdRaw); err == nil {
		run.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		run.UpdatedAt = t
	}
	if finishedRaw.Valid {
		if t, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &t
		}
	}
	return &run, nil
}

func scanArtifact(scanner rowScanner) (*Artifact, error) {
	var (
		a          Artifact
		createdRaw string
	)
	if err := scanner.Scan(
		&a.ID,
		&a.RunID,
		&a.Tile,
		&a.Kind,
		&a.Path,
		&a.Bytes,
		&a.SHA256,
		&a.Layers,
		&a.Width,
		&a.Height,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		a.CreatedAt = t
	}
	return &a, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableJSON(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return string(data), nil
}

// timestampLayout keeps a fixed fraction width so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
