package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run ID or prefix matches nothing.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRun is returned when a run ID prefix matches several runs.
var ErrAmbiguousRun = errors.New("run id prefix is ambiguous")

// CreateRun records a new run in the running state.
func (s *Store) CreateRun(ctx context.Context, spec NewRun) (*Run, error) {
	if strings.TrimSpace(spec.Source) == "" {
		return nil, errors.New("run source required")
	}
	settings, err := nullableJSON(spec.Settings)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	plan, err := nullableJSON(spec.Plan)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	video, err := nullableJSON(spec.Video)
	if err != nil {
		return nil, fmt.Errorf("video: %w", err)
	}

	id := uuid.NewString()
	now := timestamp(time.Now())
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (
            id, source, output_dir, status, settings_json, plan_json, video_json,
            tile_count, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		spec.Source,
		spec.OutputDir,
		StatusRunning,
		settings,
		plan,
		video,
		spec.TileCount,
		now,
		now,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.GetRun(ctx, id)
}

// FinishRun moves a running run to a terminal status.
func (s *Store) FinishRun(ctx context.Context, id string, status Status, message string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("finish run: %q is not a terminal status", status)
	}
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET status = ?, error_message = ?, updated_at = ?, finished_at = ?
         WHERE id = ? AND status = ?`,
		status,
		nullableString(message),
		now,
		now,
		id,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// GetRun fetches a run by its full identifier. A missing run returns nil, nil.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ResolveRun finds a run by full ID or unique prefix.
func (s *Store) ResolveRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY created_at DESC LIMIT 2`,
		idOrPrefix, stripLikeWildcards(idOrPrefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("resolve run: %w", err)
	}
	defer rows.Close()
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.ID == idOrPrefix {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve run: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, idOrPrefix)
	}
}

// ListRuns returns runs newest first, optionally filtered by status. A limit
// of zero returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int, statuses ...Status) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// AbandonRunning marks runs left in the running state by a crashed process
// as aborted. It returns the number of runs updated.
func (s *Store) AbandonRunning(ctx context.Context, olderThan time.Time) (int64, error) {
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET status = ?, error_message = ?, updated_at = ?, finished_at = ?
         WHERE status = ? AND updated_at < ?`,
		StatusAborted,
		"process exited before the run finished",
		now,
		now,
		StatusRunning,
		timestamp(olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("abandon running: %w", err)
	}
	return res.RowsAffected()
}

// DeleteRun removes a run and its artifact records. Files on disk are left alone.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin delete tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE run_id = ?`, id); err != nil {
			return fmt.Errorf("delete artifacts: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("delete run %s: %w", id, ErrRunNotFound)
		}
		return tx.Commit()
	})
}

func stripLikeWildcards(value string) string {
	replacer := strings.NewReplacer("%", "", "_", "")
	return replacer.Replace(value)
}
