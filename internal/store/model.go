// Package store persists the history of review runs.
package store

import (
	"time"

	"github.com/goombaio/namegenerator"

	"github.com/tildaslashalef/reviewflow/internal/ulid"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	// RunStatusRunning means the pipeline is still executing.
	RunStatusRunning RunStatus = "running"

	// RunStatusCompleted means the pipeline reached its terminal success state.
	RunStatusCompleted RunStatus = "completed"

	// RunStatusFailed means the pipeline terminated on the error path.
	RunStatusFailed RunStatus = "failed"
)

// Run is one recorded review pipeline execution.
type Run struct {
	ID                string
	Name              string
	Repository        string
	PRNumber          int
	HeadSHA           string
	Status            RunStatus
	FilesAnalyzed     int
	IssuesFound       int
	AnnotationsPosted int
	Report            string
	CreatedAt         time.Time
	CompletedAt       *time.Time
}

// NewRun creates a run record in the running state with a generated ID and
// a memorable name.
func NewRun(repository string, prNumber int) *Run {
	return &Run{
		ID:         ulid.RunID(),
		Name:       generateRunName(),
		Repository: repository,
		PRNumber:   prNumber,
		Status:     RunStatusRunning,
		CreatedAt:  time.Now().UTC(),
	}
}

// Complete marks the run finished with the given terminal status.
func (r *Run) Complete(status RunStatus) {
	now := time.Now().UTC()
	r.Status = status
	r.CompletedAt = &now
}

func generateRunName() string {
	seed := time.Now().UTC().UnixNano()
	return namegenerator.NewNameGenerator(seed).Generate()
}
