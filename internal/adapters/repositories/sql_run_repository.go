package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/platform/obs"
)

// SQLRunRepository stores runs in the shared postgres database.
type SQLRunRepository struct {
	DB *sql.DB
}

func NewSQLRunRepository(db *sql.DB) *SQLRunRepository {
	return &SQLRunRepository{DB: db}
}

func (s *SQLRunRepository) SaveRun(ctx context.Context, run *domain.Run) (err error) {
	defer obs.Time(ctx, "runs.sql.SaveRun")(&err)

	if s.DB == nil {
		return errors.New("run repository: db is nil")
	}
	if run == nil || run.ID == "" {
		return errors.New("save run: run id must not be empty")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertRun := `
	INSERT INTO runs (id, created_at, cutoff, window_from, window_to, input_digest, total, failed)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err = tx.ExecContext(ctx, insertRun,
		run.ID,
		run.CreatedAt.UTC(),
		run.Cutoff.UTC(),
		run.WindowFrom,
		run.WindowTo,
		run.InputDigest,
		run.Total,
		run.Failed,
	)
	if err != nil {
		return fmt.Errorf("save run: insert run id=%s: %w", run.ID, err)
	}

	insertClient := `
	INSERT INTO run_clients (run_id, client, total, failed, target_rate, meets_target)
	VALUES ($1, $2, $3, $4, $5, $6);
	`
	for _, c := range run.Clients {
		if _, err := tx.ExecContext(ctx, insertClient, run.ID, c.Client, c.Total, c.Failed, c.TargetRate, c.MeetsTarget); err != nil {
			return fmt.Errorf("save run: insert client=%s: %w", c.Client, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run: commit tx: %w", err)
	}

	return nil
}

func (s *SQLRunRepository) GetRun(ctx context.Context, id string) (_ *domain.Run, err error) {
	defer obs.Time(ctx, "runs.sql.GetRun")(&err)

	if s.DB == nil {
		return nil, errors.New("run repository: db is nil")
	}

	q := `
	SELECT id, created_at, cutoff, window_from, window_to, input_digest, total, failed
	FROM runs
	WHERE id = $1;
	`
	run, err := scanSQLRun(s.DB.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run id=%s: %w", id, domain.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run id=%s: %w", id, err)
	}

	clientsQuery := `
	SELECT client, total, failed, target_rate, meets_target
	FROM run_clients
	WHERE run_id = $1
	ORDER BY client;
	`
	rows, err := s.DB.QueryContext(ctx, clientsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get run id=%s: query run_clients table: %w", id, err)
	}
	defer rows.Close()

	run.Clients, err = scanRunClients(rows)
	if err != nil {
		return nil, fmt.Errorf("get run id=%s: %w", id, err)
	}

	return run, nil
}

// ListRuns returns run headers, newest first. Client rows are not loaded.
func (s *SQLRunRepository) ListRuns(ctx context.Context, limit int) (_ []*domain.Run, err error) {
	defer obs.Time(ctx, "runs.sql.ListRuns")(&err)

	if s.DB == nil {
		return nil, errors.New("run repository: db is nil")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("list runs: invalid limit %d", limit)
	}

	q := `
	SELECT id, created_at, cutoff, window_from, window_to, input_digest, total, failed
	FROM runs
	ORDER BY created_at DESC, id
	LIMIT $1;
	`
	rows, err := s.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: query runs table: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.Run, 0, limit)
	for rows.Next() {
		run, err := scanSQLRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: row iteration: %w", err)
	}

	return runs, nil
}

func scanSQLRun(row rowScanner) (*domain.Run, error) {
	var run domain.Run
	var windowFrom, windowTo sql.NullTime
	err := row.Scan(&run.ID, &run.CreatedAt, &run.Cutoff, &windowFrom, &windowTo, &run.InputDigest, &run.Total, &run.Failed)
	if err != nil {
		return nil, err
	}

	if windowFrom.Valid {
		run.WindowFrom = &windowFrom.Time
	}
	if windowTo.Valid {
		run.WindowTo = &windowTo.Time
	}

	return &run, nil
}
