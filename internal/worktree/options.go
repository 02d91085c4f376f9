package worktree

// CreateOptions defines options for creating worktrees
type CreateOptions struct {
	TaskID     string // Task identifier, sanitized into the branch name
	BaseBranch string // Base ref for the new branch (defaults to HEAD)
	Force      bool   // Replace an existing branch and its worktree
	CustomPath string // Explicit worktree path, overrides the computed layout
}

// RemoveOptions defines options for removing worktrees
type RemoveOptions struct {
	Target       string // Worktree path or branch name
	Force        bool   // Remove even if the worktree is dirty
	DeleteBranch bool   // Also force-delete the branch after detaching
}

// CleanupContext carries caller state the cleanup engine must not read
// from process globals, so safety checks stay testable.
type CleanupContext struct {
	WorkingDir string // Directory the calling process runs in
}
