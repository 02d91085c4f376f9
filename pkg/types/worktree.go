package types

import (
	"fmt"
	"strings"
	"time"
)

// WorktreeRecord describes one worktree as reported by git. Records are
// recomputed on every list or create call and never persisted.
type WorktreeRecord struct {
	Path       string
	Branch     string
	Head       string
	Age        time.Duration
	IsDetached bool
	IsBare     bool
	IsMain     bool
	Status     *WorktreeStatus
}

// StatusSeverity classifies how much attention a worktree needs.
type StatusSeverity string

const (
	SeverityClean        StatusSeverity = "clean"
	SeverityLightWarning StatusSeverity = "light-warning"
	SeverityWarning      StatusSeverity = "warning"
)

// FileChange is one changed path with its human-readable category,
// e.g. "modified (staged)" or "deleted".
type FileChange struct {
	Path     string
	Category string
}

// CommitInfo describes one unpushed commit. Populated only when the
// worktree is ahead of its upstream.
type CommitInfo struct {
	ShortID   string
	Message   string
	Author    string
	Timestamp time.Time
}

// RemoteStatusKind is the relationship of a branch to its upstream.
type RemoteStatusKind string

const (
	RemoteNone     RemoteStatusKind = "no-remote"
	RemoteUpToDate RemoteStatusKind = "up-to-date"
	RemoteAhead    RemoteStatusKind = "ahead"
	RemoteBehind   RemoteStatusKind = "behind"
	RemoteDiverged RemoteStatusKind = "diverged"
	RemoteDeleted  RemoteStatusKind = "remote-deleted"
)

// RemoteStatus is derived once per status computation.
type RemoteStatus struct {
	Kind   RemoteStatusKind
	Ahead  int
	Behind int
}

func (rs RemoteStatus) String() string {
	switch rs.Kind {
	case RemoteNone:
		return "no remote"
	case RemoteUpToDate:
		return "up to date"
	case RemoteAhead:
		return fmt.Sprintf("ahead %d", rs.Ahead)
	case RemoteBehind:
		return fmt.Sprintf("behind %d", rs.Behind)
	case RemoteDiverged:
		return fmt.Sprintf("diverged (ahead %d, behind %d)", rs.Ahead, rs.Behind)
	case RemoteDeleted:
		return "remote deleted"
	default:
		return string(rs.Kind)
	}
}

// WorktreeStatus is a read-only snapshot of one worktree.
type WorktreeStatus struct {
	IsClean            bool
	Severity           StatusSeverity
	UncommittedChanges []FileChange
	UntrackedFiles     []string
	UnpushedCommits    []CommitInfo
	Remote             RemoteStatus
	MergeInfo          *MergeInfo
	AheadCount         int
	BehindCount        int
}

// MergeDetectionMethod identifies one merge-detection strategy.
type MergeDetectionMethod string

const (
	MethodStandard    MergeDetectionMethod = "standard"
	MethodSquash      MergeDetectionMethod = "squash"
	MethodGitHubPR    MergeDetectionMethod = "github_pr"
	MethodFileContent MergeDetectionMethod = "file_content"
)

// MergeAttempt records the outcome of one strategy, retained for diagnostics.
type MergeAttempt struct {
	Method     MergeDetectionMethod
	IsMerged   bool
	Confidence float64
	Details    string
	Err        string
}

// MergeInfo is the fused verdict of all merge-detection strategies tried.
type MergeInfo struct {
	IsMerged   bool
	Method     MergeDetectionMethod
	Details    string
	Confidence float64
	Attempts   []MergeAttempt
}

// ViolationSeverity distinguishes overridable from hard-stop violations.
type ViolationSeverity string

const (
	// ViolationWarning can be bypassed with force.
	ViolationWarning ViolationSeverity = "warning"
	// ViolationCritical is never overridable.
	ViolationCritical ViolationSeverity = "critical"
)

// SafetyViolation is a detected risk condition on a destructive action.
// Computed fresh for every cleanup evaluation.
type SafetyViolation struct {
	Type        string
	Description string
	Severity    ViolationSeverity
}

// CleanupStrategy selects what cleanup does with each worktree.
type CleanupStrategy string

const (
	StrategyDiscard         CleanupStrategy = "discard"
	StrategyMergeToFeature  CleanupStrategy = "merge_to_feature"
	StrategyBackupToOrigin  CleanupStrategy = "backup_to_origin"
	StrategyStashAndDiscard CleanupStrategy = "stash_and_discard"
)

// ParseCleanupStrategy converts a user-supplied strategy name.
func ParseCleanupStrategy(s string) (CleanupStrategy, error) {
	switch CleanupStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyDiscard:
		return StrategyDiscard, nil
	case StrategyMergeToFeature:
		return StrategyMergeToFeature, nil
	case StrategyBackupToOrigin:
		return StrategyBackupToOrigin, nil
	case StrategyStashAndDiscard:
		return StrategyStashAndDiscard, nil
	default:
		return "", NewValidationError("parse-strategy",
			fmt.Sprintf("unknown cleanup strategy: %q", s), nil)
	}
}

// CleanupOptions is caller-supplied policy, immutable during a run.
type CleanupOptions struct {
	Strategy           CleanupStrategy
	MinAgeHours        int
	Force              bool
	DryRun             bool
	AutoConfirm        bool
	BranchPrefixFilter string
	MergedOnly         bool
	MinMergeConfidence float64
}

// CleanupAction is the terminal outcome for one evaluated worktree.
type CleanupAction string

const (
	ActionCleaned          CleanupAction = "cleaned"
	ActionSkipped          CleanupAction = "skipped"
	ActionFailed           CleanupAction = "failed"
	ActionStashCreated     CleanupAction = "stash_created"
	ActionMergedToFeature  CleanupAction = "merged_to_feature"
	ActionBackedUpToOrigin CleanupAction = "backed_up_to_origin"
)

// WorktreeCleanupResult is one per-worktree entry in a cleanup report.
type WorktreeCleanupResult struct {
	Path       string
	Branch     string
	Action     CleanupAction
	Reason     string
	Err        string
	Violations []SafetyViolation
}

// CleanupReport aggregates a full cleanup run. Built incrementally,
// one entry per evaluated worktree.
type CleanupReport struct {
	Total   int
	Cleaned int
	Skipped int
	Failed  int
	Results []WorktreeCleanupResult
}

// Add records one result and updates the counters.
func (r *CleanupReport) Add(result WorktreeCleanupResult) {
	r.Total++
	switch result.Action {
	case ActionSkipped:
		r.Skipped++
	case ActionFailed:
		r.Failed++
	default:
		r.Cleaned++
	}
	r.Results = append(r.Results, result)
}
