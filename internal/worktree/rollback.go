package worktree

import (
	"fmt"
	"os"
	"sync"

	"github.com/awhite/vibetree/internal/git"
)

// RollbackManager undoes partially completed create operations so a
// failure never leaves a stray branch or directory behind. Operations
// are executed in reverse registration order.
type RollbackManager struct {
	runner     git.Runner
	repoRoot   string
	operations []rollbackOperation
	mu         sync.Mutex
}

type rollbackOperation struct {
	description string
	action      func() error
}

// NewRollbackManager creates a new rollback manager
func NewRollbackManager(runner git.Runner, repoRoot string) *RollbackManager {
	return &RollbackManager{runner: runner, repoRoot: repoRoot}
}

// AddBranchCleanup registers force-deletion of a branch.
func (rm *RollbackManager) AddBranchCleanup(branch string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.operations = append(rm.operations, rollbackOperation{
		description: fmt.Sprintf("delete branch %s", branch),
		action: func() error {
			_, err := rm.runner.Run(rm.repoRoot, "branch", "-D", branch)
			return err
		},
	})
}

// AddWorktreeCleanup registers force-removal of a worktree.
func (rm *RollbackManager) AddWorktreeCleanup(path string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.operations = append(rm.operations, rollbackOperation{
		description: fmt.Sprintf("remove worktree %s", path),
		action: func() error {
			_, err := rm.runner.Run(rm.repoRoot, "worktree", "remove", "--force", path)
			return err
		},
	})
}

// AddDirectoryCleanup registers removal of a created directory.
func (rm *RollbackManager) AddDirectoryCleanup(path string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.operations = append(rm.operations, rollbackOperation{
		description: fmt.Sprintf("remove directory %s", path),
		action: func() error {
			return os.RemoveAll(path)
		},
	})
}

// Clear drops all registered operations.
func (rm *RollbackManager) Clear() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.operations = nil
}

// Execute runs all registered operations, newest first, and clears the
// list. Individual failures are collected, not fatal.
func (rm *RollbackManager) Execute() error {
	rm.mu.Lock()
	operations := rm.operations
	rm.operations = nil
	rm.mu.Unlock()

	var failures []string
	for i := len(operations) - 1; i >= 0; i-- {
		if err := operations[i].action(); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", operations[i].description, err))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("rollback incomplete: %v", failures)
	}
	return nil
}

// Pending reports how many operations are registered.
func (rm *RollbackManager) Pending() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.operations)
}
