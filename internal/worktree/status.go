package worktree

import (
	"strconv"
	"strings"
	"time"

	"github.com/awhite/vibetree/internal/git"
	"github.com/awhite/vibetree/internal/ui"
	"github.com/awhite/vibetree/pkg/types"
)

// Inspector computes a read-only snapshot of exactly one worktree. It
// never mutates anything.
type Inspector struct {
	runner   git.Runner
	cfg      *types.WorktreeConfig
	detector *Detector // nil disables merge detection
	ui       *ui.Manager
}

// NewInspector creates a status inspector. A nil detector skips merge
// detection entirely.
func NewInspector(runner git.Runner, cfg *types.WorktreeConfig, detector *Detector, uiMgr *ui.Manager) *Inspector {
	return &Inspector{
		runner:   runner,
		cfg:      cfg,
		detector: detector,
		ui:       uiMgr,
	}
}

// Inspect snapshots one worktree's status.
func (i *Inspector) Inspect(path string) (*types.WorktreeStatus, error) {
	status := &types.WorktreeStatus{}

	porcelain, err := i.runner.Run(path, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	status.UncommittedChanges, status.UntrackedFiles = parsePorcelainStatus(porcelain)

	i.inspectRemote(path, status)

	if status.AheadCount > 0 {
		status.UnpushedCommits = i.unpushedCommits(path)
	}

	if i.detector != nil {
		i.attachMergeInfo(path, status)
	}

	status.IsClean = len(status.UncommittedChanges) == 0 &&
		len(status.UntrackedFiles) == 0 &&
		(status.AheadCount == 0 || status.Remote.Kind == types.RemoteNone)
	status.Severity = computeSeverity(status)
	return status, nil
}

// inspectRemote derives the RemoteStatus and ahead/behind counts. A
// missing upstream is NoRemote; a resolvable upstream ref whose
// left-right count fails is RemoteDeleted.
func (i *Inspector) inspectRemote(path string, status *types.WorktreeStatus) {
	upstream, err := i.runner.Run(path, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	if err != nil || upstream == "" {
		status.Remote = types.RemoteStatus{Kind: types.RemoteNone}
		return
	}

	counts, err := i.runner.Run(path, "rev-list", "--left-right", "--count", upstream+"...HEAD")
	if err != nil {
		status.Remote = types.RemoteStatus{Kind: types.RemoteDeleted}
		return
	}

	fields := strings.Fields(counts)
	if len(fields) != 2 {
		status.Remote = types.RemoteStatus{Kind: types.RemoteDeleted}
		return
	}
	behind, _ := strconv.Atoi(fields[0])
	ahead, _ := strconv.Atoi(fields[1])
	status.AheadCount = ahead
	status.BehindCount = behind

	switch {
	case ahead == 0 && behind == 0:
		status.Remote = types.RemoteStatus{Kind: types.RemoteUpToDate}
	case ahead > 0 && behind > 0:
		status.Remote = types.RemoteStatus{Kind: types.RemoteDiverged, Ahead: ahead, Behind: behind}
	case ahead > 0:
		status.Remote = types.RemoteStatus{Kind: types.RemoteAhead, Ahead: ahead}
	default:
		status.Remote = types.RemoteStatus{Kind: types.RemoteBehind, Behind: behind}
	}
}

// unpushedCommits collects metadata for commits not yet on the upstream.
func (i *Inspector) unpushedCommits(path string) []types.CommitInfo {
	output, err := i.runner.Run(path, "log", "@{u}..HEAD",
		"--format=%h%x1f%s%x1f%an%x1f%ct")
	if err != nil || output == "" {
		return nil
	}

	var commits []types.CommitInfo
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Split(line, "\x1f")
		if len(fields) != 4 {
			continue
		}
		epoch, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			continue
		}
		commits = append(commits, types.CommitInfo{
			ShortID:   fields[0],
			Message:   fields[1],
			Author:    fields[2],
			Timestamp: time.Unix(epoch, 0),
		})
	}
	return commits
}

// attachMergeInfo consults the merge detector for the current branch.
// Detector errors are logged and swallowed; they never fail status.
func (i *Inspector) attachMergeInfo(path string, status *types.WorktreeStatus) {
	branch, err := i.runner.Run(path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil || branch == "" || branch == "HEAD" {
		return
	}
	info, err := i.detector.Detect(branch)
	if err != nil {
		i.ui.Progress("Merge detection failed for %s: %v", branch, err)
		return
	}
	status.MergeInfo = info
}

// parsePorcelainStatus splits `git status --porcelain` output into
// categorized changes and untracked files.
func parsePorcelainStatus(output string) ([]types.FileChange, []string) {
	var changes []types.FileChange
	var untracked []string

	for _, line := range strings.Split(output, "\n") {
		if len(line) < 4 {
			continue
		}
		x, y := line[0], line[1]
		path := strings.TrimSpace(line[3:])

		if x == '?' && y == '?' {
			untracked = append(untracked, path)
			continue
		}
		if x != ' ' && x != '?' {
			changes = append(changes, types.FileChange{
				Path:     path,
				Category: changeCategory(x) + " (staged)",
			})
		}
		if y != ' ' && y != '?' {
			changes = append(changes, types.FileChange{
				Path:     path,
				Category: changeCategory(y),
			})
		}
	}
	return changes, untracked
}

func changeCategory(code byte) string {
	switch code {
	case 'M':
		return "modified"
	case 'A':
		return "added"
	case 'D':
		return "deleted"
	case 'R':
		return "renamed"
	case 'C':
		return "copied"
	case 'U':
		return "unmerged"
	case 'T':
		return "type changed"
	default:
		return "changed"
	}
}

// computeSeverity applies the severity ladder in order. The first rule
// that matches wins.
func computeSeverity(status *types.WorktreeStatus) types.StatusSeverity {
	hasLocalChanges := len(status.UncommittedChanges) > 0 || len(status.UntrackedFiles) > 0

	// A confidently merged branch needs at most light attention.
	if status.MergeInfo != nil && status.MergeInfo.IsMerged && status.MergeInfo.Confidence > 0.8 {
		if !hasLocalChanges {
			return types.SeverityClean
		}
		return types.SeverityLightWarning
	}

	if !hasLocalChanges && status.AheadCount == 0 && status.BehindCount == 0 &&
		status.Remote.Kind != types.RemoteDeleted {
		return types.SeverityClean
	}

	if status.Remote.Kind == types.RemoteDeleted ||
		status.BehindCount > 10 ||
		(status.Remote.Kind == types.RemoteDiverged && status.BehindCount > 5 && status.AheadCount > 20) {
		return types.SeverityWarning
	}

	if hasLocalChanges || status.AheadCount != 0 || status.BehindCount != 0 ||
		status.Remote.Kind == types.RemoteNone {
		return types.SeverityLightWarning
	}

	return types.SeverityClean
}
