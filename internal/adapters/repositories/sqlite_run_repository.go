package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/platform/obs"
	"time"
)

// SQLite-backed implementation of the RunRepository port. Timestamps are
// stored as fixed-width UTC text so that they sort chronologically.
type SqliteRunRepository struct{ DB *sql.DB }

func NewSqliteRunRepository(db *sql.DB) *SqliteRunRepository {
	return &SqliteRunRepository{DB: db}
}

func (s *SqliteRunRepository) SaveRun(ctx context.Context, run *domain.Run) (err error) {
	defer obs.Time(ctx, "runs.sqlite.SaveRun")(&err)

	if s.DB == nil {
		return errors.New("sqlite run repository: DB is nil")
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
	INSERT INTO runs (
		id,
		created_at,
		cutoff,
		window_from,
		window_to,
		input_digest,
		total,
		failed
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err = tx.ExecContext(ctx, insertRun,
		run.ID,
		formatTime(run.CreatedAt),
		formatTime(run.Cutoff),
		formatNullTime(run.WindowFrom),
		formatNullTime(run.WindowTo),
		run.InputDigest,
		run.Total,
		run.Failed,
	)
	if err != nil {
		return fmt.Errorf("save run: insert run id=%s: %w", run.ID, err)
	}

	insertClient := `
	INSERT INTO run_clients (
		run_id,
		client,
		total,
		failed,
		target_rate,
		meets_target
	)
	VALUES (?, ?, ?, ?, ?, ?);
	`
	stmt, err := tx.PrepareContext(ctx, insertClient)
	if err != nil {
		return fmt.Errorf("save run: prepare client insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range run.Clients {
		if _, err := stmt.ExecContext(ctx, run.ID, c.Client, c.Total, c.Failed, c.TargetRate, c.MeetsTarget); err != nil {
			return fmt.Errorf("save run: insert client=%s: %w", c.Client, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run: commit tx: %w", err)
	}

	return nil
}

func (s *SqliteRunRepository) GetRun(ctx context.Context, id string) (_ *domain.Run, err error) {
	defer obs.Time(ctx, "runs.sqlite.GetRun")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite run repository: DB is nil")
	}

	query := `
	SELECT id, created_at, cutoff, window_from, window_to, input_digest, total, failed
	FROM runs
	WHERE id = ?;
	`
	run, err := scanSqliteRun(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run id=%s: %w", id, domain.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run id=%s: %w", id, err)
	}

	clientsQuery := `
	SELECT client, total, failed, target_rate, meets_target
	FROM run_clients
	WHERE run_id = ?
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
func (s *SqliteRunRepository) ListRuns(ctx context.Context, limit int) (_ []*domain.Run, err error) {
	defer obs.Time(ctx, "runs.sqlite.ListRuns")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite run repository: DB is nil")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("list runs: invalid limit %d", limit)
	}

	query := `
	SELECT id, created_at, cutoff, window_from, window_to, input_digest, total, failed
	FROM runs
	ORDER BY created_at DESC, id
	LIMIT ?;
	`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: query runs table: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.Run, 0, limit)
	for rows.Next() {
		run, err := scanSqliteRun(rows)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSqliteRun(row rowScanner) (*domain.Run, error) {
	var (
		run                  domain.Run
		createdAt, cutoff    string
		windowFrom, windowTo sql.NullString
	)
	err := row.Scan(&run.ID, &createdAt, &cutoff, &windowFrom, &windowTo, &run.InputDigest, &run.Total, &run.Failed)
	if err != nil {
		return nil, err
	}

	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("scan run id=%s: created_at: %w", run.ID, err)
	}
	if run.Cutoff, err = parseTime(cutoff); err != nil {
		return nil, fmt.Errorf("scan run id=%s: cutoff: %w", run.ID, err)
	}
	if run.WindowFrom, err = parseNullTime(windowFrom); err != nil {
		return nil, fmt.Errorf("scan run id=%s: window_from: %w", run.ID, err)
	}
	if run.WindowTo, err = parseNullTime(windowTo); err != nil {
		return nil, fmt.Errorf("scan run id=%s: window_to: %w", run.ID, err)
	}

	return &run, nil
}

func scanRunClients(rows *sql.Rows) ([]domain.RunClient, error) {
	clients := make([]domain.RunClient, 0, 16)
	for rows.Next() {
		var c domain.RunClient
		var target sql.NullFloat64
		if err := rows.Scan(&c.Client, &c.Total, &c.Failed, &target, &c.MeetsTarget); err != nil {
			return nil, fmt.Errorf("scan run client: %w", err)
		}
		if target.Valid {
			c.TargetRate = &target.Float64
		}
		clients = append(clients, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run clients: row iteration: %w", err)
	}

	return clients, nil
}

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, s)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
