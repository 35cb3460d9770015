package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/reviewflow/internal/loggy"
)

func setupMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewSQLRepository(db, loggy.NewNoopLogger()), mock
}

func sampleRun() *Run {
	return &Run{
		ID:         "run-01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Name:       "autumn-wildflower",
		Repository: "acme/widgets",
		PRNumber:   42,
		HeadSHA:    "abc123",
		Status:     RunStatusRunning,
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewRun(t *testing.T) {
	run := NewRun("acme/widgets", 42)

	assert.True(t, strings.HasPrefix(run.ID, "run-"))
	assert.NotEmpty(t, run.Name)
	assert.Equal(t, "acme/widgets", run.Repository)
	assert.Equal(t, 42, run.PRNumber)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.False(t, run.CreatedAt.IsZero())
	assert.Nil(t, run.CompletedAt)
}

func TestRunComplete(t *testing.T) {
	run := NewRun("acme/widgets", 42)
	run.Complete(RunStatusCompleted)

	assert.Equal(t, RunStatusCompleted, run.Status)
	require.NotNil(t, run.CompletedAt)
}

func TestCreateRun(t *testing.T) {
	repo, mock := setupMockRepo(t)
	run := sampleRun()

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(
			run.ID, run.Name, run.Repository, run.PRNumber, run.HeadSHA,
			string(run.Status), run.FilesAnalyzed, run.IssuesFound,
			run.AnnotationsPosted, run.Report, run.CreatedAt, nil,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.CreateRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRun(t *testing.T) {
	repo, mock := setupMockRepo(t)
	run := sampleRun()
	run.FilesAnalyzed = 3
	run.IssuesFound = 2
	run.Complete(RunStatusCompleted)

	mock.ExpectExec("UPDATE runs").
		WithArgs(
			run.HeadSHA, string(run.Status), run.FilesAnalyzed, run.IssuesFound,
			run.AnnotationsPosted, run.Report, run.CompletedAt, run.ID,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRunNotFound(t *testing.T) {
	repo, mock := setupMockRepo(t)
	run := sampleRun()

	mock.ExpectExec("UPDATE runs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateRun(context.Background(), run)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestGetRun(t *testing.T) {
	repo, mock := setupMockRepo(t)
	run := sampleRun()
	completed := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)

	rows := sqlmock.NewRows(runColumns).
		AddRow(run.ID, run.Name, run.Repository, run.PRNumber, run.HeadSHA,
			string(RunStatusCompleted), 3, 2, 2, "report body", run.CreatedAt, completed)

	mock.ExpectQuery("SELECT (.+) FROM runs").
		WithArgs(run.ID).
		WillReturnRows(rows)

	got, err := repo.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, 3, got.FilesAnalyzed)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, completed, *got.CompletedAt)
}

func TestGetRunNotFound(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM runs").
		WillReturnRows(sqlmock.NewRows(runColumns))

	_, err := repo.GetRun(context.Background(), "run-missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRecentRuns(t *testing.T) {
	repo, mock := setupMockRepo(t)
	run := sampleRun()

	rows := sqlmock.NewRows(runColumns).
		AddRow("run-A", "first", run.Repository, 1, "", string(RunStatusCompleted),
			1, 0, 0, "", run.CreatedAt.Add(time.Hour), nil).
		AddRow("run-B", "second", run.Repository, 2, "", string(RunStatusFailed),
			2, 1, 0, "", run.CreatedAt, nil)

	mock.ExpectQuery("SELECT (.+) FROM runs ORDER BY created_at DESC").
		WillReturnRows(rows)

	runs, err := repo.ListRecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-A", runs[0].ID)
	assert.Equal(t, RunStatusFailed, runs[1].Status)
}
