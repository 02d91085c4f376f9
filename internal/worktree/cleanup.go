package worktree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/awhite/vibetree/internal/git"
	"github.com/awhite/vibetree/internal/ui"
	"github.com/awhite/vibetree/pkg/types"
)

// Confirmer asks the user to approve a destructive action; a non-nil
// error means decline.
type Confirmer interface {
	Confirm(message string) error
}

// Engine evaluates every worktree against the safety rules and a chosen
// destructive strategy, then executes or declines per worktree.
type Engine struct {
	runner    git.Runner
	ops       *Operations
	inspector *Inspector
	cfg       *types.WorktreeConfig
	ui        *ui.Manager
	confirmer Confirmer
}

// NewEngine creates a cleanup engine.
func NewEngine(runner git.Runner, ops *Operations, inspector *Inspector,
	cfg *types.WorktreeConfig, uiMgr *ui.Manager, confirmer Confirmer) *Engine {
	return &Engine{
		runner:    runner,
		ops:       ops,
		inspector: inspector,
		cfg:       cfg,
		ui:        uiMgr,
		confirmer: confirmer,
	}
}

// Run evaluates all worktrees under the given options. One worktree's
// error never aborts the batch.
func (e *Engine) Run(opts types.CleanupOptions, ctx CleanupContext) (*types.CleanupReport, error) {
	if opts.Strategy == "" {
		opts.Strategy = types.StrategyDiscard
	}

	records, err := e.ops.List()
	if err != nil {
		return nil, err
	}

	report := &types.CleanupReport{}
	for _, record := range records {
		report.Add(e.evaluate(record, opts, ctx))
	}
	return report, nil
}

// evaluate runs the per-worktree state machine to a terminal outcome.
func (e *Engine) evaluate(record *types.WorktreeRecord, opts types.CleanupOptions, ctx CleanupContext) types.WorktreeCleanupResult {
	result := types.WorktreeCleanupResult{
		Path:   record.Path,
		Branch: record.Branch,
	}

	if isMainCheckout(record) {
		result.Action = types.ActionSkipped
		result.Reason = "main repository checkout"
		return result
	}

	if opts.BranchPrefixFilter != "" && !strings.HasPrefix(record.Branch, opts.BranchPrefixFilter) {
		result.Action = types.ActionSkipped
		result.Reason = fmt.Sprintf("branch does not match prefix %q", opts.BranchPrefixFilter)
		return result
	}

	status, err := e.inspector.Inspect(record.Path)
	if err != nil {
		result.Action = types.ActionFailed
		result.Reason = "status inspection failed"
		result.Err = err.Error()
		return result
	}

	violations := e.safetyViolations(record, status, opts, ctx)
	result.Violations = violations

	if v := firstCritical(violations); v != nil {
		result.Action = types.ActionSkipped
		result.Reason = v.Description
		return result
	}
	if len(violations) > 0 && !opts.Force {
		result.Action = types.ActionSkipped
		result.Reason = describeViolations(violations)
		return result
	}

	if !opts.AutoConfirm && !opts.DryRun {
		if err := e.confirmCleanup(record, violations, opts); err != nil {
			result.Action = types.ActionSkipped
			result.Reason = "declined by user"
			return result
		}
	}

	if opts.DryRun {
		result.Action = types.ActionCleaned
		result.Reason = fmt.Sprintf("dry run: would apply %s", opts.Strategy)
		return result
	}

	action, reason, err := e.execute(record, opts.Strategy)
	if err != nil {
		result.Action = types.ActionFailed
		result.Reason = reason
		result.Err = err.Error()
		return result
	}
	result.Action = action
	result.Reason = reason
	return result
}

// safetyViolations computes the risk conditions for one worktree.
// Warnings are overridable with force; Criticals never are.
func (e *Engine) safetyViolations(record *types.WorktreeRecord, status *types.WorktreeStatus,
	opts types.CleanupOptions, ctx CleanupContext) []types.SafetyViolation {
	var violations []types.SafetyViolation

	if opts.MinAgeHours > 0 && record.Age < time.Duration(opts.MinAgeHours)*time.Hour {
		violations = append(violations, types.SafetyViolation{
			Type: "too-young",
			Description: fmt.Sprintf("worktree is %s old, below the %dh minimum",
				record.Age.Round(time.Minute), opts.MinAgeHours),
			Severity: types.ViolationWarning,
		})
	}

	if len(status.UncommittedChanges) > 0 || len(status.UntrackedFiles) > 0 {
		violations = append(violations, types.SafetyViolation{
			Type: "uncommitted-changes",
			Description: fmt.Sprintf("%d uncommitted and %d untracked files would be lost",
				len(status.UncommittedChanges), len(status.UntrackedFiles)),
			Severity: types.ViolationWarning,
		})
	}

	if len(status.UnpushedCommits) > 0 {
		violations = append(violations, types.SafetyViolation{
			Type:        "unpushed-commits",
			Description: fmt.Sprintf("%d unpushed commits would be lost", len(status.UnpushedCommits)),
			Severity:    types.ViolationWarning,
		})
	}

	if opts.MergedOnly {
		if status.MergeInfo == nil || !status.MergeInfo.IsMerged {
			violations = append(violations, types.SafetyViolation{
				Type:        "not-merged",
				Description: "branch is not detectably merged and merged-only cleanup was requested",
				Severity:    types.ViolationCritical,
			})
		} else if status.MergeInfo.Confidence < opts.MinMergeConfidence {
			violations = append(violations, types.SafetyViolation{
				Type: "low-merge-confidence",
				Description: fmt.Sprintf("merge confidence %.2f is below the %.2f minimum",
					status.MergeInfo.Confidence, opts.MinMergeConfidence),
				Severity: types.ViolationWarning,
			})
		}
	}

	if isInsideDir(ctx.WorkingDir, record.Path) {
		violations = append(violations, types.SafetyViolation{
			Type:        "current-directory",
			Description: "current process directory is inside this worktree",
			Severity:    types.ViolationCritical,
		})
	}

	return violations
}

func (e *Engine) confirmCleanup(record *types.WorktreeRecord, violations []types.SafetyViolation,
	opts types.CleanupOptions) error {
	e.ui.Info("Worktree %s (%s)", record.Branch, record.Path)
	for _, v := range violations {
		e.ui.Warning("  overriding %s: %s", v.Type, v.Description)
	}
	return e.confirmer.Confirm(fmt.Sprintf("Apply %s to %s?", opts.Strategy, record.Branch))
}

// execute dispatches the chosen destructive strategy.
func (e *Engine) execute(record *types.WorktreeRecord, strategy types.CleanupStrategy) (types.CleanupAction, string, error) {
	switch strategy {
	case types.StrategyDiscard:
		return e.discard(record)
	case types.StrategyMergeToFeature:
		return e.mergeToFeature(record)
	case types.StrategyBackupToOrigin:
		return e.backupToOrigin(record)
	case types.StrategyStashAndDiscard:
		return e.stashAndDiscard(record)
	default:
		return types.ActionFailed, "unknown strategy",
			types.NewValidationError("cleanup", fmt.Sprintf("unknown strategy %q", strategy), nil)
	}
}

func (e *Engine) discard(record *types.WorktreeRecord) (types.CleanupAction, string, error) {
	err := e.ops.Remove(RemoveOptions{
		Target:       record.Path,
		Force:        true,
		DeleteBranch: e.cfg.Cleanup.AutoDeleteBranch,
	})
	if err != nil {
		return types.ActionFailed, "worktree removal failed", err
	}
	return types.ActionCleaned, "worktree discarded", nil
}

// mergeToFeature merges the worktree branch back into the feature
// branch derived by stripping the configured prefix, then retires the
// worktree. A merge conflict leaves the worktree untouched.
func (e *Engine) mergeToFeature(record *types.WorktreeRecord) (types.CleanupAction, string, error) {
	target := strings.TrimPrefix(record.Branch, e.cfg.Prefix)
	if target == record.Branch || target == "" {
		return types.ActionFailed, "no feature target",
			types.NewValidationError("merge-to-feature",
				fmt.Sprintf("branch %q does not carry the %q prefix", record.Branch, e.cfg.Prefix), nil)
	}
	if _, err := e.runner.Run(e.ops.repoRoot, "rev-parse", "--verify", "--quiet",
		"refs/heads/"+target); err != nil {
		return types.ActionFailed, "feature target missing",
			types.NewNotFoundError("merge-to-feature",
				fmt.Sprintf("feature branch %q does not exist", target), err)
	}

	if _, err := e.runner.Run(e.ops.repoRoot, "checkout", target); err != nil {
		return types.ActionFailed, "checkout of feature branch failed", err
	}
	if _, err := e.runner.Run(e.ops.repoRoot, "merge", record.Branch); err != nil {
		// Leave nothing half-merged; the worktree stays intact.
		_, _ = e.runner.Run(e.ops.repoRoot, "merge", "--abort")
		return types.ActionFailed, "merge conflict",
			types.NewPartialFailureError("merge-to-feature",
				fmt.Sprintf("merging %q into %q conflicted", record.Branch, target), err)
	}

	if err := e.ops.Remove(RemoveOptions{Target: record.Path, Force: true, DeleteBranch: true}); err != nil {
		return types.ActionFailed, "worktree removal after merge failed", err
	}
	return types.ActionMergedToFeature, fmt.Sprintf("merged into %s", target), nil
}

// backupToOrigin pushes the branch to origin and removes the worktree;
// the branch is kept as the backup.
func (e *Engine) backupToOrigin(record *types.WorktreeRecord) (types.CleanupAction, string, error) {
	if _, err := e.runner.Run(record.Path, "push", "origin", record.Branch); err != nil {
		return types.ActionFailed, "push to origin failed", err
	}
	if err := e.ops.Remove(RemoveOptions{Target: record.Path, Force: true, DeleteBranch: false}); err != nil {
		return types.ActionFailed, "worktree removal after push failed", err
	}
	return types.ActionBackedUpToOrigin, "branch pushed to origin", nil
}

// stashAndDiscard stashes any local work before discarding, recording
// whether a stash was actually created.
func (e *Engine) stashAndDiscard(record *types.WorktreeRecord) (types.CleanupAction, string, error) {
	output, err := e.runner.Run(record.Path, "stash", "push", "--include-untracked",
		"-m", fmt.Sprintf("vibetree cleanup of %s", record.Branch))
	if err != nil {
		return types.ActionFailed, "stash failed", err
	}
	stashed := !strings.Contains(output, "No local changes to save")

	removeErr := e.ops.Remove(RemoveOptions{
		Target:       record.Path,
		Force:        true,
		DeleteBranch: e.cfg.Cleanup.AutoDeleteBranch && !stashed,
	})
	if removeErr != nil {
		return types.ActionFailed, "worktree removal after stash failed", removeErr
	}
	if stashed {
		return types.ActionStashCreated, "local changes stashed, worktree discarded", nil
	}
	return types.ActionCleaned, "nothing to stash, worktree discarded", nil
}

// isMainCheckout reports whether a record is the primary checkout: its
// path directly contains a .git directory rather than a gitdir file.
func isMainCheckout(record *types.WorktreeRecord) bool {
	if record.IsMain || record.IsBare {
		return true
	}
	info, err := os.Stat(filepath.Join(record.Path, ".git"))
	return err == nil && info.IsDir()
}

func firstCritical(violations []types.SafetyViolation) *types.SafetyViolation {
	for i := range violations {
		if violations[i].Severity == types.ViolationCritical {
			return &violations[i]
		}
	}
	return nil
}

func describeViolations(violations []types.SafetyViolation) string {
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = v.Description
	}
	return strings.Join(parts, "; ")
}

// isInsideDir reports whether dir sits at or below root.
func isInsideDir(dir, root string) bool {
	if dir == "" || root == "" {
		return false
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
