package review

import (
	"context"
	"fmt"

	"github.com/tildaslashalef/reviewflow/internal/annotate"
	"github.com/tildaslashalef/reviewflow/internal/battery"
	"github.com/tildaslashalef/reviewflow/internal/github"
	"github.com/tildaslashalef/reviewflow/internal/loggy"
	"github.com/tildaslashalef/reviewflow/internal/report"
	"github.com/tildaslashalef/reviewflow/internal/store"
)

// State labels the pipeline's progress for logging and run history.
type State string

const (
	StateStart            State = "start"
	StateEnvironmentReady State = "environment_ready"
	StateBatteryComplete  State = "battery_complete"
	StateReportPersisted  State = "report_persisted"
	StateSummaryComposed  State = "summary_composed"
	StateFeedbackAppended State = "feedback_appended"
	StatePublished        State = "published"
	StateDone             State = "done"
	StateErrored          State = "errored"
)

// errorCommentHeader opens the best-effort comment posted on the error path.
const errorCommentHeader = "## 🚨 Review Error"

// HostingService is the pull-request API surface the pipeline consumes.
type HostingService interface {
	GetPullRequestInfo(ctx context.Context, number int) (*github.PullRequestInfo, error)
	PostComment(ctx context.Context, number int, body string) error
	annotate.LineCommenter
}

// Environment is a prepared sandbox usable by the battery.
type Environment interface {
	battery.Environment
	Close() error
}

// EnvironmentBuilder prepares one Environment per run.
type EnvironmentBuilder interface {
	BuildEnvironment(ctx context.Context, dir string) (Environment, error)
}

// FeedbackGenerator produces the optional narrative section. Implementations
// never fail; degraded outcomes come back as displayable strings.
type FeedbackGenerator interface {
	Generate(ctx context.Context, prNumber int, result *battery.Result) string
}

// Service drives a review run from start to published result.
type Service struct {
	repository  string
	prNumber    int
	repoDir     string
	artifactDir string

	hosting   HostingService
	builder   EnvironmentBuilder
	executor  *battery.Executor
	composer  *report.Composer
	annotator *annotate.Annotator
	feedback  FeedbackGenerator // nil when no provider is configured
	runs      store.Repository  // nil when history persistence is disabled

	logger *loggy.Logger
	state  State
	result *battery.Result
}

// Deps bundles the collaborators a review Service needs.
type Deps struct {
	Repository  string
	PRNumber    int
	RepoDir     string
	ArtifactDir string // defaults to the working directory

	Hosting   HostingService
	Builder   EnvironmentBuilder
	Executor  *battery.Executor
	Composer  *report.Composer
	Annotator *annotate.Annotator
	Feedback  FeedbackGenerator
	Runs      store.Repository

	Logger *loggy.Logger
}

// NewService creates a review service. Feedback and Runs may be nil; every
// other dependency is required.
func NewService(d Deps) *Service {
	if d.ArtifactDir == "" {
		d.ArtifactDir = "."
	}

	return &Service{
		repository:  d.Repository,
		prNumber:    d.PRNumber,
		repoDir:     d.RepoDir,
		artifactDir: d.ArtifactDir,
		hosting:     d.Hosting,
		builder:     d.Builder,
		executor:    d.Executor,
		composer:    d.Composer,
		annotator:   d.Annotator,
		feedback:    d.Feedback,
		runs:        d.Runs,
		logger:      d.Logger,
		state:       StateStart,
	}
}

// State reports the pipeline's current state.
func (s *Service) State() State {
	return s.state
}

// BatteryResult returns the tool outcomes of the last run, for callers
// that render a local summary after publishing. Nil until the battery
// has completed.
func (s *Service) BatteryResult() *battery.Result {
	return s.result
}

// Run executes the whole pipeline once. Each stage runs exactly once, with
// no retries across stages. On an unrecoverable failure a distinct error
// comment is attempted best-effort and the error is returned to the caller.
func (s *Service) Run(ctx context.Context) error {
	run := store.NewRun(s.repository, s.prNumber)
	s.recordCreate(ctx, run)

	err := s.run(ctx, run)
	if err != nil {
		s.transition(StateErrored)
		run.Complete(store.RunStatusFailed)
		s.recordUpdate(ctx, run)
		s.postErrorComment(ctx, err)
		return err
	}

	s.transition(StateDone)
	run.Complete(store.RunStatusCompleted)
	s.recordUpdate(ctx, run)
	return nil
}

func (s *Service) run(ctx context.Context, run *store.Run) error {
	s.logger.Info("Starting review", "repository", s.repository, "pr", s.prNumber)

	info, err := s.hosting.GetPullRequestInfo(ctx, s.prNumber)
	if err != nil {
		return fmt.Errorf("fetching pull request: %w", err)
	}

	changes := NewChangeSet(s.repository, info)
	run.HeadSHA = changes.HeadSHA
	run.FilesAnalyzed = len(changes.Files)

	result, err := s.runBattery(ctx, changes)
	if err != nil {
		return err
	}
	s.result = result

	s.persistArtifact(result)
	s.transition(StateReportPersisted)

	feedbackText := ""
	if s.feedback != nil && !result.NothingToAnalyze {
		feedbackText = s.feedback.Generate(ctx, s.prNumber, result)
	}

	body := s.composer.Compose(result, feedbackText)
	s.transition(StateSummaryComposed)
	if feedbackText != "" {
		s.transition(StateFeedbackAppended)
	}
	run.Report = body
	run.IssuesFound = countIssues(result)

	// The summary comment is the run's one essential user-visible outcome;
	// its failure is the only publishing failure that escalates.
	if err := s.hosting.PostComment(ctx, s.prNumber, body); err != nil {
		return fmt.Errorf("publishing summary comment: %w", err)
	}
	s.transition(StatePublished)

	run.AnnotationsPosted = s.annotator.Annotate(ctx, s.prNumber, changes.HeadSHA, result)

	s.logger.Info("Review complete",
		"pr", s.prNumber,
		"files", len(changes.Files),
		"issues", run.IssuesFound,
		"annotations", run.AnnotationsPosted,
	)
	return nil
}

// runBattery prepares the sandbox and executes the tool battery. An empty
// change set skips environment preparation entirely.
func (s *Service) runBattery(ctx context.Context, changes *ChangeSet) (*battery.Result, error) {
	if len(changes.Files) == 0 {
		s.transition(StateBatteryComplete)
		return s.executor.Run(ctx, nil, nil), nil
	}

	env, err := s.builder.BuildEnvironment(ctx, s.repoDir)
	if err != nil {
		return nil, fmt.Errorf("preparing analysis environment: %w", err)
	}
	defer func() {
		if cerr := env.Close(); cerr != nil {
			s.logger.Warn("Could not tear down analysis environment", "error", cerr)
		}
	}()
	s.transition(StateEnvironmentReady)

	result := s.executor.Run(ctx, env, changes.Files)
	s.transition(StateBatteryComplete)
	return result, nil
}

// persistArtifact writes the raw-outcome JSON artifact. Failure here is
// logged only; the artifact is external-facing and never read back.
func (s *Service) persistArtifact(result *battery.Result) {
	if err := report.WriteArtifact(s.artifactDir, s.prNumber, result); err != nil {
		s.logger.Warn("Could not write review artifact", "pr", s.prNumber, "error", err)
	}
}

// postErrorComment publishes the distinct error comment, best-effort: its
// own failure is logged and swallowed.
func (s *Service) postErrorComment(ctx context.Context, runErr error) {
	body := fmt.Sprintf("%s\n\n❌ Review failed: %s", errorCommentHeader, runErr)
	if err := s.hosting.PostComment(ctx, s.prNumber, body); err != nil {
		s.logger.Error("Could not post error comment", "pr", s.prNumber, "error", err)
	}
}

func (s *Service) transition(next State) {
	s.logger.Debug("Review state transition", "from", string(s.state), "to", string(next))
	s.state = next
}

func (s *Service) recordCreate(ctx context.Context, run *store.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		s.logger.Warn("Could not record run", "id", run.ID, "error", err)
	}
}

func (s *Service) recordUpdate(ctx context.Context, run *store.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.UpdateRun(ctx, run); err != nil {
		s.logger.Warn("Could not update run record", "id", run.ID, "error", err)
	}
}

func countIssues(result *battery.Result) int {
	n := 0
	for _, o := range result.Outcomes {
		if o.Status == battery.StatusIssuesFound {
			n++
		}
	}
	return n
}
