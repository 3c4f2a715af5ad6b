package artifacts

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Publish records a written artifact for a running run. Size and checksum are
// computed from the file when not supplied.
func (s *Store) Publish(ctx context.Context, a Artifact) (*Artifact, error) {
	if a.RunID == "" {
		return nil, errors.New("artifact run id required")
	}
	if a.Path == "" {
		return nil, errors.New("artifact path required")
	}
	if a.SHA256 == "" || a.Bytes == 0 {
		sum, size, err := Checksum(a.Path)
		if err != nil {
			return nil, err
		}
		a.SHA256, a.Bytes = sum, size
	}

	run, err := s.GetRun(ctx, a.RunID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("publish artifact: %w: %s", ErrRunNotFound, a.RunID)
	}
	if run.Status != StatusRunning {
		return nil, fmt.Errorf("publish artifact: run %s is %s", a.RunID, run.Status)
	}

	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO artifacts (
            run_id, tile, kind, path, bytes, sha256, layers, width, height, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID,
		a.Tile,
		a.Kind,
		a.Path,
		a.Bytes,
		a.SHA256,
		a.Layers,
		a.Width,
		a.Height,
		timestamp(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	return &a, nil
}

// ListArtifacts returns a run's artifacts ordered by tile.
func (s *Store) ListArtifacts(ctx context.Context, runID string) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+artifactColumns+` FROM artifacts WHERE run_id = ? ORDER BY tile`, runID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()
	var out []*Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return out, nil
}
