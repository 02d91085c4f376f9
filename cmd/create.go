package cmd

import (
	"fmt"

	"github.com/awhite/vibetree/internal/worktree"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <task-id>",
	Short: "Create a worktree for a task",
	Long: `Create a branch and worktree for a task identifier.

The task id is sanitized into a branch name under the configured prefix,
and the worktree directory is laid out under the configured base dir.

Examples:
  vibetree create my-feature
  vibetree create "Fix: issue #456"
  vibetree create hotfix --base release/1.2
  vibetree create my-feature --force        # replace existing branch`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := setupManager()
		if err != nil {
			return err
		}

		baseBranch, _ := cmd.Flags().GetString("base")
		force, _ := cmd.Flags().GetBool("force")
		customPath, _ := cmd.Flags().GetString("path")

		record, err := manager.CreateWorktreeWithOptions(worktree.CreateOptions{
			TaskID:     args[0],
			BaseBranch: baseBranch,
			Force:      force,
			CustomPath: customPath,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Created worktree %s on branch %s\n", record.Path, record.Branch)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().String("base", "", "base branch for the new branch (default HEAD)")
	createCmd.Flags().BoolP("force", "f", false, "replace an existing branch and its worktree")
	createCmd.Flags().String("path", "", "explicit worktree path, overrides the configured layout")
}
