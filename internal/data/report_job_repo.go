package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/ledgerline/shopreports/internal/data/pgxutil"
	"github.com/ledgerline/shopreports/internal/domain/model"
	apperrors "github.com/ledgerline/shopreports/internal/errors"
)

var (
	// ErrReportJobNotFound is returned when a report job is not found.
	ErrReportJobNotFound = errors.New("report job not found")
	// ErrArtifactNotFound is returned when a job has no artifact in the
	// requested format.
	ErrArtifactNotFound = errors.New("report artifact not found")
)

// reportJobNotifyChannel carries pg_notify wakeups for newly queued jobs.
const reportJobNotifyChannel = "report_job_queued"

// listJobsLimit caps per-shop job listings.
const listJobsLimit = 50

// ReportJobRepoConfig holds configuration options for the job repository.
type ReportJobRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// ReportJobRepo provides database operations for the report job queue and
// its artifacts.
type ReportJobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewReportJobRepo creates a new ReportJobRepo instance.
func NewReportJobRepo(db *sql.DB, cfg ReportJobRepoConfig) *ReportJobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &ReportJobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const reportJobColumns = `
  id,
  shop_id,
  status,
  params,
  error_message,
  started_at,
  completed_at,
  lease_expires_at,
  created_at,
  updated_at
`

// SQL used by ReserveNext to atomically claim the next queued job.
const reserveNextReportJobSQL = `
  WITH cte AS (
    SELECT id FROM report_jobs
    WHERE status = 'queued'
    ORDER BY created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE report_jobs j
  SET
    status = 'running',
    started_at = COALESCE(j.started_at, $1),
    lease_expires_at = $2,
    updated_at = $3
  FROM cte
  WHERE j.id = cte.id
  RETURNING ` + reportJobColumns

// Enqueue creates a queued job for a shop and notifies listening workers,
// both in one transaction.
func (r *ReportJobRepo) Enqueue(
	ctx context.Context,
	shopID string,
	params model.ReportParams,
) (*model.ReportJob, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal report params: %w", err)
	}

	var job *model.ReportJob
	txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, qerr := tx.Query(ctx, `
				INSERT INTO report_jobs(shop_id, status, params)
				VALUES ($1, 'queued', $2)
				RETURNING `+reportJobColumns, shopID, raw)
			if qerr != nil {
				return fmt.Errorf("insert report job: %w", qerr)
			}
			j, cerr := collectReportJob(rows)
			rows.Close()
			if cerr != nil {
				return fmt.Errorf("collect report job: %w", cerr)
			}
			if _, nerr := tx.Exec(ctx,
				`SELECT pg_notify($1::text, $2::text)`,
				reportJobNotifyChannel, j.ID,
			); nerr != nil {
				return fmt.Errorf("send job notification: %w", nerr)
			}
			job = j
			return nil
		},
	})
	if txErr != nil {
		return nil, apperrors.MapDBError(txErr)
	}
	return job, nil
}

// requeueExpired returns running jobs with an expired lease to the queue so
// another worker can claim them after a crash.
func (r *ReportJobRepo) requeueExpired(ctx context.Context) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx,
				"SELECT pg_try_advisory_xact_lock($1::integer)", advisoryLockRequeue,
			).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			res, err := tx.ExecContext(ctx, `
				UPDATE report_jobs
				SET status = 'queued', lease_expires_at = NULL
				WHERE status = 'running'
				  AND lease_expires_at IS NOT NULL
				  AND lease_expires_at < $1
			`, r.timeProvider.Now().UTC())
			if err != nil {
				return fmt.Errorf("requeue expired: %w", err)
			}
			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// advisoryLockRequeue serializes requeueExpired across workers.
const advisoryLockRequeue int64 = 2101

// ReserveNext claims the oldest queued job, marks it running, and leases it
// for leaseSeconds. Returns model.ErrNoJobsAvailable when the queue is empty.
func (r *ReportJobRepo) ReserveNext(ctx context.Context, leaseSeconds int) (*model.ReportJob, error) {
	if requeued, err := r.requeueExpired(ctx); err != nil {
		return nil, fmt.Errorf("requeue expired jobs: %w", err)
	} else if requeued > 0 && r.logger != nil {
		r.logger.WarnContext(ctx, "requeued expired report jobs", "count", requeued)
	}

	var job *model.ReportJob
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			now := r.timeProvider.Now().UTC()
			lease := now.Add(time.Duration(leaseSeconds) * time.Second)

			rows, qerr := tx.Query(ctx, reserveNextReportJobSQL, now, lease, now)
			if qerr != nil {
				return fmt.Errorf("reserve report job: %w", qerr)
			}
			defer rows.Close()

			j, cerr := collectReportJob(rows)
			if errors.Is(cerr, pgx.ErrNoRows) {
				return model.ErrNoJobsAvailable
			}
			if cerr != nil {
				return fmt.Errorf("reserve report job: %w", cerr)
			}
			job = j
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// CompleteWithArtifacts persists all artifact blobs and marks the job
// complete as one transaction, so the web tier never observes a complete job
// with missing artifacts. Returns false when the job was not running.
func (r *ReportJobRepo) CompleteWithArtifacts(
	ctx context.Context,
	jobID string,
	artifacts map[model.ReportFormat][]byte,
) (bool, error) {
	if len(artifacts) == 0 {
		return false, errors.New("at least one artifact is required")
	}

	completed := false
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			now := r.timeProvider.Now().UTC()
			res, err := tx.ExecContext(ctx, `
				UPDATE report_jobs
				SET status = 'complete',
				    completed_at = $2,
				    updated_at = $2,
				    lease_expires_at = NULL,
				    error_message = NULL
				WHERE id = $1 AND status = 'running'
			`, jobID, now)
			if err != nil {
				return fmt.Errorf("complete report job: %w", err)
			}
			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			if ra == 0 {
				return nil
			}

			for format, content := range artifacts {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO report_artifacts (job_id, format, content)
					VALUES ($1, $2, $3)
					ON CONFLICT (job_id, format) DO UPDATE
					SET content = EXCLUDED.content, created_at = now()
				`, jobID, format, content); err != nil {
					return fmt.Errorf("insert artifact %s: %w", format, err)
				}
			}
			completed = true
			return nil
		},
	})
	if err != nil {
		return false, err
	}
	return completed, nil
}

// Fail marks a running job failed with the error message captured verbatim.
// Failure is terminal; the job is not requeued.
func (r *ReportJobRepo) Fail(ctx context.Context, jobID, errMsg string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE report_jobs
		SET status = 'failed',
		    error_message = $2,
		    completed_at = $3,
		    updated_at = $3,
		    lease_expires_at = NULL
		WHERE id = $1 AND status = 'running'
	`, jobID, errMsg, now)
	if err != nil {
		return false, fmt.Errorf("fail report job: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("fail rows affected: %w", err)
	}
	return ra > 0, nil
}

// GetByID retrieves a report job by its ID. Malformed ids report not-found
// rather than surfacing a cast error from Postgres.
func (r *ReportJobRepo) GetByID(ctx context.Context, id string) (*model.ReportJob, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrReportJobNotFound
	}
	var job *model.ReportJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+reportJobColumns+`
			FROM report_jobs
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = collectReportJob(rows)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// ListByShop returns a shop's jobs newest-first, capped at 50.
func (r *ReportJobRepo) ListByShop(ctx context.Context, shopID string) ([]*model.ReportJob, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+reportJobColumns+`
		FROM report_jobs
		WHERE shop_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, shopID, listJobsLimit)
	if err != nil {
		return nil, fmt.Errorf("list report jobs: %w", apperrors.MapDBError(err))
	}
	defer rows.Close() //nolint:errcheck

	var jobs []*model.ReportJob
	for rows.Next() {
		job, err := scanReportJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list report jobs: %w", err)
	}
	return jobs, nil
}

// GetArtifact returns the persisted bytes for one format of a job.
func (r *ReportJobRepo) GetArtifact(
	ctx context.Context,
	jobID string,
	format model.ReportFormat,
) ([]byte, error) {
	var content []byte
	err := r.DB.QueryRowContext(ctx, `
		SELECT content FROM report_artifacts
		WHERE job_id = $1 AND format = $2
	`, jobID, format).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report artifact: %w", apperrors.MapDBError(err))
	}
	return content, nil
}

// ArtifactFormats lists the formats persisted for a job.
func (r *ReportJobRepo) ArtifactFormats(ctx context.Context, jobID string) ([]model.ReportFormat, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT format FROM report_artifacts
		WHERE job_id = $1
		ORDER BY format
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list artifact formats: %w", apperrors.MapDBError(err))
	}
	defer rows.Close() //nolint:errcheck

	var formats []model.ReportFormat
	for rows.Next() {
		var f model.ReportFormat
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan artifact format: %w", err)
		}
		formats = append(formats, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list artifact formats: %w", err)
	}
	return formats, nil
}

// Stats returns counts of jobs in each lifecycle state.
func (r *ReportJobRepo) Stats(ctx context.Context) (*model.ReportJobStats, error) {
	var s model.ReportJobStats
	err := r.DB.QueryRowContext(ctx, `
	  SELECT
	    count(*) FILTER (WHERE status = 'queued')   AS queued,
	    count(*) FILTER (WHERE status = 'running')  AS running,
	    count(*) FILTER (WHERE status = 'complete') AS complete,
	    count(*) FILTER (WHERE status = 'failed')   AS failed
	  FROM report_jobs
	`).Scan(&s.Queued, &s.Running, &s.Complete, &s.Failed)
	if err != nil {
		return nil, fmt.Errorf("report job stats: %w", apperrors.MapDBError(err))
	}
	return &s, nil
}

// WaitForNotification blocks until a queued-job notification arrives or the
// context is canceled.
func (r *ReportJobRepo) WaitForNotification(ctx context.Context) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	quoted := pgx.Identifier{reportJobNotifyChannel}.Sanitize()
	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", reportJobNotifyChannel, execErr)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "UNLISTEN "+quoted)
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

// collectReportJob collects a single job from pgx rows.
func collectReportJob(rows pgx.Rows) (*model.ReportJob, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	job, err := scanReportJob(rows)
	if err != nil {
		return nil, err
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}
	return job, nil
}

type reportJobScanner interface {
	Scan(dest ...any) error
}

func scanReportJob(scanner reportJobScanner) (*model.ReportJob, error) {
	var (
		job                                    model.ReportJob
		params                                 []byte
		errorMessage                           sql.NullString
		startedAt, completedAt, leaseExpiresAt sql.NullTime
	)
	if err := scanner.Scan(
		&job.ID,
		&job.ShopID,
		&job.Status,
		&params,
		&errorMessage,
		&startedAt,
		&completedAt,
		&leaseExpiresAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	job.Params = append(json.RawMessage(nil), params...)
	job.ErrorMessage = nullableString(errorMessage)
	job.StartedAt = nullableTime(startedAt)
	job.CompletedAt = nullableTime(completedAt)
	job.LeaseExpiresAt = nullableTime(leaseExpiresAt)
	return &job, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
