package worktree

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/awhite/vibetree/internal/config"
	"github.com/awhite/vibetree/internal/git"
	"github.com/awhite/vibetree/internal/ui"
	"github.com/awhite/vibetree/pkg/types"
)

// Operations is the only component permitted to mutate git worktree state.
type Operations struct {
	runner   git.Runner
	cfg      *types.WorktreeConfig
	repoRoot string
	ui       *ui.Manager
	rollback *RollbackManager
}

// NewOperations creates the worktree mutation component.
func NewOperations(runner git.Runner, cfg *types.WorktreeConfig, repoRoot string, uiMgr *ui.Manager) *Operations {
	return &Operations{
		runner:   runner,
		cfg:      cfg,
		repoRoot: repoRoot,
		ui:       uiMgr,
		rollback: NewRollbackManager(runner, repoRoot),
	}
}

var (
	taskIDInvalidChars = regexp.MustCompile(`[^A-Za-z0-9\-_/]`)
	dashRuns           = regexp.MustCompile(`-{2,}`)
)

// SanitizeTaskID normalizes a task identifier into a branch-name
// fragment: characters outside [A-Za-z0-9-_/] become '-', runs of '-'
// collapse, and leading/trailing '-' and '/' are trimmed. The result is
// empty when nothing usable remains.
func SanitizeTaskID(taskID string) string {
	s := taskIDInvalidChars.ReplaceAllString(taskID, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-/")
}

// branchNameForbidden are characters that would let a branch name smuggle
// arguments or shell syntax into the subprocesses it is later passed to.
const branchNameForbidden = "$`(){}|&;<>\n\r\x00\"'\\"

// ValidateBranchName rejects branch names that are empty, contain
// shell/control-special characters, start or end with '.' or '/',
// contain ".." or "@{", or exceed 255 characters.
func ValidateBranchName(name string) error {
	if name == "" {
		return types.NewValidationError("validate-branch", "branch name is empty", nil)
	}
	if len(name) > 255 {
		return types.NewValidationError("validate-branch",
			fmt.Sprintf("branch name exceeds 255 characters: %d", len(name)), nil)
	}
	if strings.ContainsAny(name, branchNameForbidden) {
		return types.NewValidationError("validate-branch",
			fmt.Sprintf("branch name contains forbidden characters: %q", name), nil)
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return types.NewValidationError("validate-branch",
			fmt.Sprintf("branch name must not start or end with '.': %q", name), nil)
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return types.NewValidationError("validate-branch",
			fmt.Sprintf("branch name must not start or end with '/': %q", name), nil)
	}
	if strings.Contains(name, "..") {
		return types.NewValidationError("validate-branch",
			fmt.Sprintf("branch name must not contain '..': %q", name), nil)
	}
	if strings.Contains(name, "@{") {
		return types.NewValidationError("validate-branch",
			fmt.Sprintf("branch name must not contain '@{': %q", name), nil)
	}
	return nil
}

// BranchName returns the branch a task id maps to, after sanitization
// and validation.
func (o *Operations) BranchName(taskID string) (string, error) {
	sanitized := SanitizeTaskID(taskID)
	if sanitized == "" {
		return "", types.NewValidationError("create-worktree",
			fmt.Sprintf("task id %q contains no usable characters", taskID), nil)
	}
	branch := o.cfg.Prefix + sanitized
	if err := ValidateBranchName(branch); err != nil {
		return "", err
	}
	return branch, nil
}

// Create makes a new branch and worktree for a task id.
func (o *Operations) Create(opts CreateOptions) (*types.WorktreeRecord, error) {
	branch, err := o.BranchName(opts.TaskID)
	if err != nil {
		return nil, err
	}
	sanitized := SanitizeTaskID(opts.TaskID)

	baseBranch := opts.BaseBranch
	if baseBranch == "" {
		baseBranch = "HEAD"
	}

	worktreePath := opts.CustomPath
	if worktreePath == "" {
		worktreePath = o.worktreePath(sanitized)
	}

	if o.branchExists(branch) {
		if !opts.Force {
			return nil, types.NewStateConflictError("create-worktree",
				fmt.Sprintf("branch %q already exists", branch), nil)
		}
		if err := o.forceRemoveExisting(branch); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(worktreePath), 0o755); err != nil {
		return nil, types.NewConfigError("create-worktree",
			fmt.Sprintf("failed to create base directory for %s", worktreePath), err)
	}
	if err := o.ensureGitignoreEntry(); err != nil {
		return nil, err
	}

	o.rollback.Clear()
	if _, err := o.runner.Run(o.repoRoot, "branch", branch, baseBranch); err != nil {
		return nil, err
	}
	o.rollback.AddBranchCleanup(branch)

	o.ui.Progress("Creating worktree at %s", worktreePath)
	if _, err := o.runner.Run(o.repoRoot, "worktree", "add", worktreePath, branch); err != nil {
		o.ui.Warning("Worktree creation failed, rolling back branch %s", branch)
		if rbErr := o.rollback.Execute(); rbErr != nil {
			o.ui.Warning("Rollback incomplete: %v", rbErr)
		}
		return nil, err
	}
	o.rollback.Clear()

	head, headErr := o.runner.Run(worktreePath, "rev-parse", "--short", "HEAD")
	if headErr != nil {
		head = ""
	}

	return &types.WorktreeRecord{
		Path:   worktreePath,
		Branch: branch,
		Head:   head,
	}, nil
}

// Remove detaches a worktree resolved by path or branch name, and
// optionally force-deletes its branch afterwards.
func (o *Operations) Remove(opts RemoveOptions) error {
	record, err := o.Resolve(opts.Target)
	if err != nil {
		return err
	}

	branch := record.Branch
	args := []string{"worktree", "remove"}
	if opts.Force {
		args = append(args, "--force")
	}
	args = append(args, record.Path)
	if _, err := o.runner.Run(o.repoRoot, args...); err != nil {
		return err
	}

	if opts.DeleteBranch && !record.IsDetached && branch != "" {
		if _, err := o.runner.Run(o.repoRoot, "branch", "-D", branch); err != nil {
			return err
		}
	}
	return nil
}

// Resolve maps a target to a known worktree: a literal path if one
// exists on disk, otherwise a branch name.
func (o *Operations) Resolve(target string) (*types.WorktreeRecord, error) {
	records, err := o.List()
	if err != nil {
		return nil, err
	}

	if pathExists(target) {
		abs, absErr := filepath.Abs(target)
		if absErr != nil {
			abs = target
		}
		for _, record := range records {
			if record.Path == abs || record.Path == target {
				return record, nil
			}
		}
		return nil, types.NewNotFoundError("resolve-worktree",
			fmt.Sprintf("path is not a git worktree: %s", target), nil)
	}

	for _, record := range records {
		if record.Branch == target {
			return record, nil
		}
	}
	return nil, types.NewNotFoundError("resolve-worktree",
		fmt.Sprintf("no worktree found for %q", target), nil)
}

// List parses git's machine-readable worktree listing.
func (o *Operations) List() ([]*types.WorktreeRecord, error) {
	output, err := o.runner.Run(o.repoRoot, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreeList(output, time.Now()), nil
}

// parseWorktreeList parses `git worktree list --porcelain` output.
// Detached and bare checkouts are recorded literally.
func parseWorktreeList(output string, now time.Time) []*types.WorktreeRecord {
	var records []*types.WorktreeRecord
	var current *types.WorktreeRecord

	flush := func() {
		if current == nil {
			return
		}
		if current.IsBare {
			current.Branch = "(bare)"
		} else if current.IsDetached {
			current.Branch = "(detached)"
		}
		if info, err := os.Stat(current.Path); err == nil {
			current.Age = now.Sub(directoryCreatedTime(info))
		}
		records = append(records, current)
		current = nil
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &types.WorktreeRecord{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "HEAD ") && current != nil:
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch ") && current != nil:
			current.Branch = strings.TrimPrefix(line, "branch refs/heads/")
		case line == "detached" && current != nil:
			current.IsDetached = true
		case line == "bare" && current != nil:
			current.IsBare = true
		}
	}
	flush()

	// The first entry of the porcelain listing is the main checkout.
	if len(records) > 0 {
		records[0].IsMain = true
	}
	return records
}

// worktreePath lays out <base>/<task segments>__<hex timestamp>. The
// hex suffix keeps repeated creations for the same task id unique.
func (o *Operations) worktreePath(sanitizedID string) string {
	segments := strings.Split(sanitizedID, "/")
	segments[len(segments)-1] = fmt.Sprintf("%s__%s",
		segments[len(segments)-1], strconv.FormatInt(time.Now().UnixNano(), 16))
	return filepath.Join(append([]string{o.baseDir()}, segments...)...)
}

// baseDir resolves the configured base directory per mode.
func (o *Operations) baseDir() string {
	if o.cfg.Mode == types.ModeGlobal {
		return filepath.Join(config.ExpandHome(o.cfg.BaseDir), filepath.Base(o.repoRoot))
	}
	if filepath.IsAbs(o.cfg.BaseDir) {
		return o.cfg.BaseDir
	}
	return filepath.Join(o.repoRoot, o.cfg.BaseDir)
}

// forceRemoveExisting detaches any worktree bound to branch and
// force-deletes the branch itself, so creation can start fresh.
func (o *Operations) forceRemoveExisting(branch string) error {
	records, err := o.List()
	if err != nil {
		return err
	}
	for _, record := range records {
		if record.Branch == branch {
			o.ui.Warning("Force-removing existing worktree %s", record.Path)
			if _, err := o.runner.Run(o.repoRoot, "worktree", "remove", "--force", record.Path); err != nil {
				return err
			}
		}
	}
	if _, err := o.runner.Run(o.repoRoot, "branch", "-D", branch); err != nil {
		return err
	}
	return nil
}

func (o *Operations) branchExists(branch string) bool {
	_, err := o.runner.Run(o.repoRoot, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// ensureGitignoreEntry idempotently appends the worktree base directory
// to .gitignore. Only applies in local mode with a relative base dir;
// anything else lives outside the repository's tracked tree.
func (o *Operations) ensureGitignoreEntry() error {
	if !o.cfg.AutoGitignore || o.cfg.Mode != types.ModeLocal || filepath.IsAbs(o.cfg.BaseDir) {
		return nil
	}

	entry := strings.TrimSuffix(o.cfg.BaseDir, "/") + "/"
	gitignorePath := filepath.Join(o.repoRoot, ".gitignore")

	data, err := os.ReadFile(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return types.NewConfigError("gitignore", "failed to read .gitignore", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == entry || strings.TrimSpace(line) == strings.TrimSuffix(entry, "/") {
			return nil
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return types.NewConfigError("gitignore", "failed to open .gitignore", err)
	}
	defer f.Close()

	prefix := ""
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		prefix = "\n"
	}
	if _, err := f.WriteString(prefix + entry + "\n"); err != nil {
		return types.NewConfigError("gitignore", "failed to append to .gitignore", err)
	}
	o.ui.Progress("Added %s to .gitignore", entry)
	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
