package worktree

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/awhite/vibetree/internal/git"
	"github.com/awhite/vibetree/internal/github"
	"github.com/awhite/vibetree/pkg/types"
)

// Detector infers whether a branch has already landed upstream. Plain
// ancestry checks miss squash merges, rebases, and platform-side PR
// merges, so several independent strategies run and fuse into one
// confidence-scored verdict.
type Detector struct {
	runner   git.Runner
	repoRoot string
	cfg      *types.MergeDetectionConfig
	gh       *github.Client
}

// NewDetector creates a merge detector. The GitHub client is only
// consulted when the configuration enables the github_pr method.
func NewDetector(runner git.Runner, repoRoot string, cfg *types.MergeDetectionConfig, gh *github.Client) *Detector {
	return &Detector{
		runner:   runner,
		repoRoot: repoRoot,
		cfg:      cfg,
		gh:       gh,
	}
}

// Detect runs the configured strategies in order and fuses the results.
func (d *Detector) Detect(branch string) (*types.MergeInfo, error) {
	if err := ValidateBranchName(branch); err != nil {
		return nil, err
	}

	var attempts []types.MergeAttempt
	for _, name := range d.cfg.Methods {
		method := types.MergeDetectionMethod(name)
		if method == types.MethodGitHubPR && (!d.cfg.UseGitHubCLI || d.gh == nil) {
			continue
		}
		attempt := d.runMethod(method, branch)
		attempts = append(attempts, attempt)
	}
	return fuseAttempts(attempts), nil
}

func (d *Detector) runMethod(method types.MergeDetectionMethod, branch string) types.MergeAttempt {
	attempt := types.MergeAttempt{Method: method}

	var merged bool
	var confidence float64
	var details string
	var err error

	switch method {
	case types.MethodStandard:
		merged, confidence, details, err = d.detectStandard(branch)
	case types.MethodSquash:
		merged, confidence, details, err = d.detectSquash(branch)
	case types.MethodGitHubPR:
		merged, confidence, details, err = d.detectGitHubPR(branch)
	case types.MethodFileContent:
		merged, confidence, details, err = d.detectFileContent(branch)
	default:
		err = fmt.Errorf("unknown merge detection method: %q", method)
	}

	if err != nil {
		attempt.Err = err.Error()
		return attempt
	}
	attempt.IsMerged = merged
	attempt.Confidence = confidence
	attempt.Details = details
	return attempt
}

// detectStandard asks git's ancestry directly: a branch listed in
// `git branch --merged <main>` has landed by a regular merge.
func (d *Detector) detectStandard(branch string) (bool, float64, string, error) {
	checked := 0
	for _, main := range d.cfg.MainBranches {
		output, err := d.runner.Run(d.repoRoot, "branch", "--merged", main,
			"--format=%(refname:short)")
		if err != nil {
			continue
		}
		checked++
		for _, line := range strings.Split(output, "\n") {
			if strings.TrimSpace(line) == branch {
				return true, d.cfg.Confidence.StandardMerged,
					fmt.Sprintf("ancestor of %s", main), nil
			}
		}
	}
	if checked == 0 {
		return false, 0, "", fmt.Errorf("no configured main branch exists")
	}
	return false, d.cfg.Confidence.StandardUnmerged, "not an ancestor of any main branch", nil
}

// detectSquash layers heuristics that survive history rewriting: an
// empty diff against the merge-base, a main-branch log mention of the
// branch or its PR number, commit-timestamp correlation, and finally
// post-change file content comparison.
func (d *Detector) detectSquash(branch string) (bool, float64, string, error) {
	main, err := d.resolveMainBranch()
	if err != nil {
		return false, 0, "", err
	}
	mergeBase, err := d.runner.Run(d.repoRoot, "merge-base", main, branch)
	if err != nil {
		return false, 0, "", err
	}

	if _, err := d.runner.Run(d.repoRoot, "diff", "--quiet", mergeBase, branch); err == nil {
		return true, d.cfg.Confidence.SquashZeroDiff,
			"no changes beyond merge-base", nil
	}

	if d.mainLogMentions(mergeBase, main, branch) {
		return true, d.cfg.Confidence.SquashLogMention,
			fmt.Sprintf("%s log mentions branch", main), nil
	}

	if d.timestampsCorrelate(mergeBase, main, branch) {
		return true, d.cfg.Confidence.SquashTimestamp,
			fmt.Sprintf("branch tip timestamp correlates with %s commits", main), nil
	}

	ratio, err := d.contentMatchRatio(mergeBase, main, branch)
	if err != nil {
		return false, 0, "", err
	}
	if ratio >= d.cfg.Confidence.ContentThreshold {
		return true, ratio * d.cfg.Confidence.ContentWeight,
			fmt.Sprintf("%.0f%% of changed files identical on %s", ratio*100, main), nil
	}
	return false, d.cfg.Confidence.SquashTimestamp,
		fmt.Sprintf("content match ratio %.2f below threshold", ratio), nil
}

// detectGitHubPR asks the GitHub CLI for merged PRs whose head matches
// the branch. CLI unavailability fails only this method.
func (d *Detector) detectGitHubPR(branch string) (bool, float64, string, error) {
	if err := d.gh.IsAvailable(d.repoRoot); err != nil {
		return false, 0, "", err
	}
	prs, err := d.gh.MergedPRsForBranch(d.repoRoot, branch)
	if err != nil {
		return false, 0, "", err
	}
	if len(prs) > 0 {
		return true, d.cfg.Confidence.GitHubPR,
			fmt.Sprintf("merged as PR #%d (%s)", prs[0].Number, prs[0].Title), nil
	}
	return false, d.cfg.Confidence.StandardUnmerged, "no merged PR with this head", nil
}

// detectFileContent is the standalone version of the squash content
// comparison.
func (d *Detector) detectFileContent(branch string) (bool, float64, string, error) {
	main, err := d.resolveMainBranch()
	if err != nil {
		return false, 0, "", err
	}
	mergeBase, err := d.runner.Run(d.repoRoot, "merge-base", main, branch)
	if err != nil {
		return false, 0, "", err
	}
	ratio, err := d.contentMatchRatio(mergeBase, main, branch)
	if err != nil {
		return false, 0, "", err
	}
	if ratio >= d.cfg.Confidence.ContentThreshold {
		return true, ratio * d.cfg.Confidence.ContentWeight,
			fmt.Sprintf("%.0f%% of changed files identical on %s", ratio*100, main), nil
	}
	return false, d.cfg.Confidence.SquashTimestamp,
		fmt.Sprintf("content match ratio %.2f below threshold", ratio), nil
}

var prNumberPattern = regexp.MustCompile(`(\d+)$`)

// mainLogMentions scans the main-branch log since the merge-base for
// the branch name or the PR number embedded in it.
func (d *Detector) mainLogMentions(mergeBase, main, branch string) bool {
	output, err := d.runner.Run(d.repoRoot, "log", mergeBase+".."+main, "--oneline")
	if err != nil || output == "" {
		return false
	}

	prRef := ""
	if m := prNumberPattern.FindString(branch); m != "" {
		prRef = "#" + m
	}
	shortName := branch
	if idx := strings.LastIndex(branch, "/"); idx >= 0 {
		shortName = branch[idx+1:]
	}

	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, branch) || strings.Contains(line, shortName) {
			return true
		}
		if prRef != "" && strings.Contains(line, prRef) {
			return true
		}
	}
	return false
}

// squashTimestampWindow is how close a main commit must land to the
// branch tip for a timestamp correlation (seconds).
const squashTimestampWindow = 3600

// timestampsCorrelate reports whether any main commit since the
// merge-base landed within an hour of the branch tip commit. Squash
// merges usually land shortly after the last branch commit.
func (d *Detector) timestampsCorrelate(mergeBase, main, branch string) bool {
	tipOut, err := d.runner.Run(d.repoRoot, "log", "-1", "--format=%ct", branch)
	if err != nil {
		return false
	}
	tip, err := strconv.ParseInt(tipOut, 10, 64)
	if err != nil {
		return false
	}

	mainOut, err := d.runner.Run(d.repoRoot, "log", mergeBase+".."+main, "--format=%ct")
	if err != nil || mainOut == "" {
		return false
	}
	for _, line := range strings.Split(mainOut, "\n") {
		epoch, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if err != nil {
			continue
		}
		if math.Abs(float64(epoch-tip)) <= squashTimestampWindow {
			return true
		}
	}
	return false
}

// contentMatchRatio compares post-change file contents between the
// branch and main, returning the fraction of changed files whose
// content is byte-identical on both sides.
func (d *Detector) contentMatchRatio(mergeBase, main, branch string) (float64, error) {
	output, err := d.runner.Run(d.repoRoot, "diff", "--name-only", mergeBase, branch)
	if err != nil {
		return 0, err
	}
	files := strings.Split(output, "\n")

	total := 0
	matched := 0
	for _, file := range files {
		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}
		total++
		branchContent, branchErr := d.runner.Run(d.repoRoot, "show", branch+":"+file)
		mainContent, mainErr := d.runner.Run(d.repoRoot, "show", main+":"+file)
		if branchErr == nil && mainErr == nil && branchContent == mainContent {
			matched++
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("branch has no changed files to compare")
	}
	return float64(matched) / float64(total), nil
}

// resolveMainBranch returns the first configured main branch that exists.
func (d *Detector) resolveMainBranch() (string, error) {
	for _, main := range d.cfg.MainBranches {
		if _, err := d.runner.Run(d.repoRoot, "rev-parse", "--verify", "--quiet",
			"refs/heads/"+main); err == nil {
			return main, nil
		}
	}
	return "", fmt.Errorf("none of the configured main branches exist: %v", d.cfg.MainBranches)
}

// fuseAttempts combines per-method attempts into one verdict. Any
// merged result beats every not-merged result; among same-outcome
// results the highest confidence wins. When every method errored the
// verdict is not-merged with zero confidence.
func fuseAttempts(attempts []types.MergeAttempt) *types.MergeInfo {
	info := &types.MergeInfo{Attempts: attempts}

	var bestMerged, bestUnmerged *types.MergeAttempt
	for idx := range attempts {
		attempt := &attempts[idx]
		if attempt.Err != "" {
			continue
		}
		if attempt.IsMerged {
			if bestMerged == nil || attempt.Confidence > bestMerged.Confidence {
				bestMerged = attempt
			}
		} else {
			if bestUnmerged == nil || attempt.Confidence > bestUnmerged.Confidence {
				bestUnmerged = attempt
			}
		}
	}

	switch {
	case bestMerged != nil:
		info.IsMerged = true
		info.Method = bestMerged.Method
		info.Confidence = bestMerged.Confidence
		info.Details = bestMerged.Details
	case bestUnmerged != nil:
		info.IsMerged = false
		info.Method = bestUnmerged.Method
		info.Confidence = bestUnmerged.Confidence
		info.Details = bestUnmerged.Details
	default:
		info.IsMerged = false
		info.Confidence = 0.0
		info.Details = "all detection methods failed"
	}
	return info
}
