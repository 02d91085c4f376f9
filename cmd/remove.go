package cmd

import (
	"fmt"

	"github.com/awhite/vibetree/internal/worktree"
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <path-or-branch>",
	Short: "Remove a worktree",
	Long: `Remove a worktree, resolved as a literal path if one exists,
otherwise as a branch name.

Examples:
  vibetree remove .worktrees/my-feature__1a2b3c
  vibetree remove vibe-ws/my-feature --delete-branch
  vibetree remove vibe-ws/my-feature --force     # even if dirty`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := setupManager()
		if err != nil {
			return err
		}

		force, _ := cmd.Flags().GetBool("force")
		deleteBranch, _ := cmd.Flags().GetBool("delete-branch")

		err = manager.RemoveWorktreeWithOptions(worktree.RemoveOptions{
			Target:       args[0],
			Force:        force,
			DeleteBranch: deleteBranch,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Removed worktree %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)

	removeCmd.Flags().BoolP("force", "f", false, "remove even if the worktree is dirty")
	removeCmd.Flags().Bool("delete-branch", false, "also force-delete the branch")
}
