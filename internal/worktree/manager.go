package worktree

import (
	"os"
	"sync"
	"time"

	"github.com/awhite/vibetree/internal/config"
	"github.com/awhite/vibetree/internal/git"
	"github.com/awhite/vibetree/internal/github"
	"github.com/awhite/vibetree/internal/ui"
	"github.com/awhite/vibetree/pkg/types"
)

// statusFanOut bounds how many worktrees are inspected concurrently.
// Inspections touch disjoint directories, so fan-out is safe; mutations
// are serialized separately through the lock manager.
const statusFanOut = 4

// mutationLockTimeout bounds how long a mutation waits for the
// per-repository lock.
const mutationLockTimeout = 30 * time.Second

// Manager wires configuration to the engine components. It is the only
// surface external collaborators see.
type Manager struct {
	runner    git.Runner
	cfg       *types.WorktreeConfig
	repoRoot  string
	ui        *ui.Manager
	ops       *Operations
	inspector *Inspector
	detector  *Detector
	engine    *Engine
	cache     *StatusCache
	locks     *LockManager
}

// NewManager builds a fully wired manager for one repository.
func NewManager(runner git.Runner, cfg *types.WorktreeConfig, repoRoot string, uiMgr *ui.Manager) *Manager {
	var ghClient *github.Client
	if cfg.MergeDetection.UseGitHubCLI {
		ghClient = github.NewClient(runner)
	}
	detector := NewDetector(runner, repoRoot, &cfg.MergeDetection, ghClient)
	ops := NewOperations(runner, cfg, repoRoot, uiMgr)
	inspector := NewInspector(runner, cfg, detector, uiMgr)
	engine := NewEngine(runner, ops, inspector, cfg, uiMgr, uiMgr)

	locks, err := NewLockManager()
	if err != nil {
		// Without a lock directory mutations proceed unguarded; warn
		// rather than fail, matching how rare the condition is.
		uiMgr.Warning("Failed to initialize lock manager, concurrency protection disabled: %v", err)
		locks = nil
	}

	return &Manager{
		runner:    runner,
		cfg:       cfg,
		repoRoot:  repoRoot,
		ui:        uiMgr,
		ops:       ops,
		inspector: inspector,
		detector:  detector,
		engine:    engine,
		cache:     NewStatusCache(),
		locks:     locks,
	}
}

// Config returns the effective configuration.
func (m *Manager) Config() *types.WorktreeConfig {
	return m.cfg
}

// CreateWorktree creates a worktree for a task id with default options.
func (m *Manager) CreateWorktree(taskID string) (*types.WorktreeRecord, error) {
	return m.CreateWorktreeWithOptions(CreateOptions{TaskID: taskID})
}

// CreateWorktreeWithOptions creates a worktree under caller-supplied
// options, holding the repository mutation lock for the duration.
func (m *Manager) CreateWorktreeWithOptions(opts CreateOptions) (*types.WorktreeRecord, error) {
	release, err := m.lockMutation()
	if err != nil {
		return nil, err
	}
	defer release()
	return m.ops.Create(opts)
}

// RemoveWorktree removes a worktree by path or branch name.
func (m *Manager) RemoveWorktree(target string, force bool) error {
	return m.RemoveWorktreeWithOptions(RemoveOptions{Target: target, Force: force})
}

// RemoveWorktreeWithOptions removes a worktree under caller-supplied
// options, holding the repository mutation lock for the duration.
func (m *Manager) RemoveWorktreeWithOptions(opts RemoveOptions) error {
	release, err := m.lockMutation()
	if err != nil {
		return err
	}
	defer release()
	return m.ops.Remove(opts)
}

// ListWorktrees returns all worktrees without status snapshots.
func (m *Manager) ListWorktrees() ([]*types.WorktreeRecord, error) {
	return m.ops.List()
}

// ListWorktreesWithStatus returns all worktrees with status snapshots,
// computed through the cache with bounded parallel fan-out.
func (m *Manager) ListWorktreesWithStatus() ([]*types.WorktreeRecord, error) {
	records, err := m.ops.List()
	if err != nil {
		return nil, err
	}

	sem := make(chan struct{}, statusFanOut)
	var wg sync.WaitGroup
	for _, record := range records {
		if record.IsBare {
			continue
		}
		wg.Add(1)
		go func(record *types.WorktreeRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			record.Status = m.statusFor(record.Path)
		}(record)
	}
	wg.Wait()

	m.cache.CleanupStaleEntries()
	return records, nil
}

// StatusFor returns the (possibly cached) status snapshot for one path.
func (m *Manager) StatusFor(path string) (*types.WorktreeStatus, error) {
	if status, ok := m.cache.Get(path); ok {
		return status, nil
	}
	status, err := m.inspector.Inspect(path)
	if err != nil {
		return nil, err
	}
	m.cache.Insert(path, status)
	return status, nil
}

// statusFor is the error-swallowing variant used during list fan-out.
func (m *Manager) statusFor(path string) *types.WorktreeStatus {
	status, err := m.StatusFor(path)
	if err != nil {
		m.ui.Progress("Status inspection failed for %s: %v", path, err)
		return nil
	}
	return status
}

// CleanupWorktrees evaluates every worktree against the safety rules
// and the chosen strategy. The mutation lock is held for the whole
// batch so cleanup cannot race create/remove on the same repository.
func (m *Manager) CleanupWorktrees(opts types.CleanupOptions) (*types.CleanupReport, error) {
	release, err := m.lockMutation()
	if err != nil {
		return nil, err
	}
	defer release()

	workingDir, err := os.Getwd()
	if err != nil {
		workingDir = ""
	}
	return m.engine.Run(opts, CleanupContext{WorkingDir: workingDir})
}

// CacheStats exposes cache diagnostics.
func (m *Manager) CacheStats() CacheStats {
	return m.cache.Stats()
}

// ConfigSummary returns the effective configuration as display rows.
func (m *Manager) ConfigSummary() [][2]string {
	return config.Summary(m.cfg)
}

// ValidateConfiguration re-checks the effective configuration.
func (m *Manager) ValidateConfiguration() error {
	return config.Validate(m.cfg)
}

// lockMutation serializes mutations per repository root. The returned
// release function is a no-op when locking is disabled.
func (m *Manager) lockMutation() (func(), error) {
	if m.locks == nil {
		return func() {}, nil
	}
	lock, err := m.locks.AcquireMutation(m.repoRoot, mutationLockTimeout)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := m.locks.Release(lock); err != nil {
			m.ui.Warning("Failed to release mutation lock: %v", err)
		}
	}, nil
}
