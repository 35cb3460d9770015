package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v59/github"

	"github.com/tildaslashalef/reviewflow/internal/config"
	"github.com/tildaslashalef/reviewflow/internal/loggy"
)

// ChangedFile is one file touched by the pull request, with its change status
// as reported by GitHub ("added", "modified", "removed", "renamed", ...).
type ChangedFile struct {
	Path   string
	Status string
}

// PullRequestInfo carries the identity a review run needs from the PR.
type PullRequestInfo struct {
	Number  int
	HeadSHA string
	Files   []ChangedFile
}

// Service provides the hosting-API operations consumed by the review pipeline.
type Service struct {
	client *Client
	owner  string
	repo   string
	logger *loggy.Logger
}

// NewService creates a new GitHub service bound to the configured repository.
func NewService(cfg *config.Config, logger *loggy.Logger) *Service {
	owner, repo := cfg.RepoOwnerName()

	return &Service{
		client: NewClient(cfg),
		owner:  owner,
		repo:   repo,
		logger: logger,
	}
}

// GetPullRequestInfo fetches the PR head commit and its changed-file list.
func (s *Service) GetPullRequestInfo(ctx context.Context, number int) (*PullRequestInfo, error) {
	pr, _, err := s.client.GetPullRequest(ctx, s.owner, s.repo, number)
	if err != nil {
		return nil, fmt.Errorf("getting pull request #%d: %w", number, err)
	}

	if pr.Head == nil || pr.Head.SHA == nil {
		return nil, fmt.Errorf("pull request #%d has no head commit SHA", number)
	}

	rawFiles, _, err := s.client.GetPullRequestFiles(ctx, s.owner, s.repo, number)
	if err != nil {
		return nil, fmt.Errorf("listing files for pull request #%d: %w", number, err)
	}

	files := make([]ChangedFile, 0, len(rawFiles))
	for _, f := range rawFiles {
		files = append(files, ChangedFile{
			Path:   f.GetFilename(),
			Status: f.GetStatus(),
		})
	}

	s.logger.Debug("Fetched pull request",
		"pr", number,
		"head_sha", pr.Head.GetSHA(),
		"changed_files", len(files),
	)

	return &PullRequestInfo{
		Number:  number,
		HeadSHA: pr.Head.GetSHA(),
		Files:   files,
	}, nil
}

// GetDiff fetches the unified diff text for the pull request.
func (s *Service) GetDiff(ctx context.Context, number int) (string, error) {
	diff, err := s.client.GetPullRequestDiff(ctx, s.owner, s.repo, number)
	if err != nil {
		return "", fmt.Errorf("fetching diff for pull request #%d: %w", number, err)
	}
	return diff, nil
}

// PostComment posts an issue-level comment on the pull request.
func (s *Service) PostComment(ctx context.Context, number int, body string) error {
	comment := &github.IssueComment{Body: github.String(body)}

	_, _, err := s.client.client.Issues.CreateComment(ctx, s.owner, s.repo, number, comment)
	if err != nil {
		s.logger.Error("Failed to post PR comment",
			"error", err,
			"repo", fmt.Sprintf("%s/%s", s.owner, s.repo),
			"pr", number)
		return fmt.Errorf("posting comment: %w", err)
	}

	s.logger.Info("Posted PR comment",
		"pr_url", fmt.Sprintf("https://github.com/%s/%s/pull/%d", s.owner, s.repo, number))

	return nil
}

// PostLineComment posts a review comment attached to a specific file and line
// of the given commit.
func (s *Service) PostLineComment(ctx context.Context, number int, commitSHA, path string, line int, body string) error {
	comment := &github.PullRequestComment{
		Path:     github.String(path),
		CommitID: github.String(commitSHA),
		Body:     github.String(body),
		Line:     github.Int(line),
	}

	_, _, err := s.client.client.PullRequests.CreateComment(ctx, s.owner, s.repo, number, comment)
	if err != nil {
		return fmt.Errorf("posting line comment on %s:%d: %w", path, line, err)
	}

	s.logger.Debug("Posted line comment", "path", path, "line", line, "pr", number)

	return nil
}
