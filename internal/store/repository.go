package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tildaslashalef/reviewflow/internal/loggy"
)

// ErrRunNotFound is returned when a run is not found
var ErrRunNotFound = errors.New("run not found")

// Repository defines the interface for run persistence operations
type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRecentRuns(ctx context.Context, limit int) ([]*Run, error)
}

// SQLRepository implements Repository using SQLite
type SQLRepository struct {
	db      *sql.DB
	logger  *loggy.Logger
	builder sq.StatementBuilderType
}

// NewSQLRepository creates a new run SQL repository
func NewSQLRepository(db *sql.DB, logger *loggy.Logger) Repository {
	return &SQLRepository{
		db:      db,
		logger:  logger,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

var runColumns = []string{
	"id",
	"name",
	"repository",
	"pr_number",
	"head_sha",
	"status",
	"files_analyzed",
	"issues_found",
	"annotations_posted",
	"report",
	"created_at",
	"completed_at",
}

// CreateRun saves a new run to the database
func (r *SQLRepository) CreateRun(ctx context.Context, run *Run) error {
	query, args, err := r.builder.
		Insert("runs").
		Columns(runColumns...).
		Values(
			run.ID,
			run.Name,
			run.Repository,
			run.PRNumber,
			run.HeadSHA,
			run.Status,
			run.FilesAnalyzed,
			run.IssuesFound,
			run.AnnotationsPosted,
			run.Report,
			run.CreatedAt,
			run.CompletedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	r.logger.Info("Created run", "id", run.ID, "name", run.Name,
		"repository", run.Repository, "pr", run.PRNumber)
	return nil
}

// UpdateRun persists the mutable fields of an existing run
func (r *SQLRepository) UpdateRun(ctx context.Context, run *Run) error {
	query, args, err := r.builder.
		Update("runs").
		Set("head_sha", run.HeadSHA).
		Set("status", run.Status).
		Set("files_analyzed", run.FilesAnalyzed).
		Set("issues_found", run.IssuesFound).
		Set("annotations_posted", run.AnnotationsPosted).
		Set("report", run.Report).
		Set("completed_at", run.CompletedAt).
		Where(sq.Eq{"id": run.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRunNotFound
	}

	return nil
}

// GetRun retrieves a run by its ID
func (r *SQLRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	query, args, err := r.builder.
		Select(runColumns...).
		From("runs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	run, err := scanRun(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	return run, nil
}

// ListRecentRuns retrieves the most recent runs, newest first
func (r *SQLRepository) ListRecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}

	query, args, err := r.builder.
		Select(runColumns...).
		From("runs").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var run Run
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.Name,
		&run.Repository,
		&run.PRNumber,
		&run.HeadSHA,
		&run.Status,
		&run.FilesAnalyzed,
		&run.IssuesFound,
		&run.AnnotationsPosted,
		&run.Report,
		&run.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}
