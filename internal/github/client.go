// Package github wraps the GitHub CLI queries the merge detector needs.
// Execution goes through the git gateway; this package only builds
// arguments and parses JSON.
package github

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/awhite/vibetree/internal/git"
	"github.com/awhite/vibetree/pkg/types"
)

// Client answers merged-PR queries via the gh CLI.
type Client struct {
	runner git.Runner
}

// MergedPR describes one merged pull request matching a head branch.
type MergedPR struct {
	Number   int       `json:"number"`
	Title    string    `json:"title"`
	MergedAt time.Time `json:"mergedAt"`
}

// NewClient creates a new GitHub client.
func NewClient(runner git.Runner) *Client {
	return &Client{runner: runner}
}

// IsAvailable checks that the GitHub CLI exists and is authenticated.
func (c *Client) IsAvailable(dir string) error {
	if _, err := c.runner.RunGH(dir, "auth", "status"); err != nil {
		return types.NewConfigError("github-cli",
			"GitHub CLI unavailable or not authenticated. Run 'gh auth login' first", err)
	}
	return nil
}

// MergedPRsForBranch returns merged PRs whose head ref matches branch.
func (c *Client) MergedPRsForBranch(dir, branch string) ([]MergedPR, error) {
	output, err := c.runner.RunGH(dir, "pr", "list",
		"--state", "merged",
		"--head", branch,
		"--json", "number,title,mergedAt",
		"--limit", "10")
	if err != nil {
		return nil, err
	}

	var prs []MergedPR
	if err := json.Unmarshal([]byte(output), &prs); err != nil {
		return nil, types.NewConfigError("github-json-parse",
			fmt.Sprintf("failed to parse gh response for branch %q", branch), err)
	}
	return prs, nil
}
