// Package github wraps the GitHub API surface that a review run needs:
// changed-file listing, the unified diff, and comment publishing.
package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v59/github"
	"golang.org/x/oauth2"

	"github.com/tildaslashalef/reviewflow/internal/config"
)

// Client represents a GitHub API client
type Client struct {
	client *github.Client
	config *config.GitHubConfig
}

// NewClient creates a new GitHub API client with the provided token
func NewClient(cfg *config.Config) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Run.Token},
	)

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = cfg.GitHub.RequestTimeout

	// Create GitHub client with custom base URL if specified
	var client *github.Client
	if cfg.GitHub.APIURL != "" && cfg.GitHub.APIURL != "https://api.github.com" {
		enterprise, err := github.NewClient(tc).WithEnterpriseURLs(cfg.GitHub.APIURL, cfg.GitHub.APIURL)
		if err != nil {
			// Fall back to default client if enterprise client creation fails
			client = github.NewClient(tc)
		} else {
			client = enterprise
		}
	} else {
		client = github.NewClient(tc)
	}

	return &Client{
		client: client,
		config: &cfg.GitHub,
	}
}

// GetPullRequest gets a pull request by number
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, *github.Response, error) {
	if owner == "" || repo == "" {
		return nil, nil, fmt.Errorf("owner and repo must be provided")
	}

	return c.client.PullRequests.Get(ctx, owner, repo, number)
}

// GetPullRequestFiles gets the files in a pull request
func (c *Client) GetPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]*github.CommitFile, *github.Response, error) {
	if owner == "" || repo == "" {
		return nil, nil, fmt.Errorf("owner and repo must be provided")
	}

	var all []*github.CommitFile
	opts := &github.ListOptions{PerPage: 100}
	for {
		files, resp, err := c.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, resp, err
		}
		all = append(all, files...)
		if resp.NextPage == 0 {
			return all, resp, nil
		}
		opts.Page = resp.NextPage
	}
}

// GetPullRequestDiff fetches the unified diff for a pull request
func (c *Client) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	if owner == "" || repo == "" {
		return "", fmt.Errorf("owner and repo must be provided")
	}

	diff, _, err := c.client.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{Type: github.Diff})
	return diff, err
}
