package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/itamaramsalem1/hppdauto-web/constants"
	"github.com/itamaramsalem1/hppdauto-web/internal/common"
	"github.com/itamaramsalem1/hppdauto-web/internal/entity"
)

// SQLiteRegistry stores jobs in a sqlite file so the registry survives a
// process restart. Artifacts under the artifact dir survive with it, so a
// completed job remains downloadable until retention expiry.
type SQLiteRegistry struct {
	db *sql.DB
}

const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id             TEXT PRIMARY KEY,
	state          TEXT NOT NULL,
	percent        INTEGER NOT NULL,
	status_message TEXT NOT NULL,
	target_date    TEXT NOT NULL,
	result_path    TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	finished_at    TEXT
);`

func NewSQLiteRegistry(ctx context.Context, dsn string) (*SQLiteRegistry, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open job registry: %w", err)
	}
	// The registry sees short single-row statements only; one connection
	// avoids sqlite write-lock contention.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, jobsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create jobs table: %w", err)
	}
	return &SQLiteRegistry{db: db}, nil
}

func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

func (r *SQLiteRegistry) Create(ctx context.Context, j entity.Job) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO jobs (id, state, percent, status_message, target_date, result_path, error, created_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, string(j.State), j.Percent, j.StatusMessage,
		j.TargetDate.Format(time.RFC3339), j.ResultPath, j.Error,
		j.CreatedAt.Format(time.RFC3339Nano), formatFinished(j.FinishedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return common.NewAppError("JOB_DUPLICATE", "job id already in use: "+j.ID, common.ErrInvalidInput)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *SQLiteRegistry) Get(ctx context.Context, id string) (entity.Job, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, state, percent, status_message, target_date, result_path, error, created_at, finished_at
		 FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

func (r *SQLiteRegistry) Update(ctx context.Context, j entity.Job) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, percent = ?, status_message = ?, result_path = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		string(j.State), j.Percent, j.StatusMessage, j.ResultPath, j.Error,
		formatFinished(j.FinishedAt), j.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRegistry) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRegistry) List(ctx context.Context) ([]entity.Job, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, state, percent, status_message, target_date, result_path, error, created_at, finished_at
		 FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []entity.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (entity.Job, error) {
	var (
		j          entity.Job
		state      string
		targetDate string
		createdAt  string
		finishedAt sql.NullString
	)
	err := row.Scan(&j.ID, &state, &j.Percent, &j.StatusMessage,
		&targetDate, &j.ResultPath, &j.Error, &createdAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Job{}, common.ErrNotFound
	}
	if err != nil {
		return entity.Job{}, fmt.Errorf("scan job: %w", err)
	}

	j.State = constants.JobState(state)
	if j.TargetDate, err = time.Parse(time.RFC3339, targetDate); err != nil {
		return entity.Job{}, fmt.Errorf("job target date: %w", err)
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return entity.Job{}, fmt.Errorf("job created at: %w", err)
	}
	if finishedAt.Valid && finishedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return entity.Job{}, fmt.Errorf("job finished at: %w", err)
		}
		j.FinishedAt = &t
	}
	return j, nil
}

func formatFinished(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

var _ Registry = (*SQLiteRegistry)(nil)
