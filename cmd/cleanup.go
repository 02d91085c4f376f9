package cmd

import (
	"fmt"

	"github.com/awhite/vibetree/pkg/types"
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Safely retire worktrees",
	Long: `Evaluate every worktree against the safety rules and retire the ones
that pass, using the chosen strategy.

Strategies:
  discard            remove the worktree (and branch, if configured)
  merge_to_feature   merge back into the feature branch, then remove
  backup_to_origin   push the branch to origin, then remove
  stash_and_discard  stash local work, then remove

Safety violations are reported per worktree. Warnings can be overridden
with --force; critical violations never can.

Examples:
  vibetree cleanup --dry-run
  vibetree cleanup --merged-only --min-confidence 0.8
  vibetree cleanup --strategy backup_to_origin --prefix vibe-ws/
  vibetree cleanup --force --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := setupManager()
		if err != nil {
			return err
		}

		strategyName, _ := cmd.Flags().GetString("strategy")
		strategy, err := types.ParseCleanupStrategy(strategyName)
		if err != nil {
			return err
		}

		minAge, _ := cmd.Flags().GetInt("min-age")
		force, _ := cmd.Flags().GetBool("force")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		autoConfirm, _ := cmd.Flags().GetBool("yes")
		prefix, _ := cmd.Flags().GetString("prefix")
		mergedOnly, _ := cmd.Flags().GetBool("merged-only")
		minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")

		if minAge < 0 {
			minAge = manager.Config().Cleanup.AgeThresholdHours
		}
		if !cmd.Flags().Changed("yes") && !manager.Config().Cleanup.RequireConfirmation {
			autoConfirm = true
		}

		report, err := manager.CleanupWorktrees(types.CleanupOptions{
			Strategy:           strategy,
			MinAgeHours:        minAge,
			Force:              force,
			DryRun:             dryRun,
			AutoConfirm:        autoConfirm,
			BranchPrefixFilter: prefix,
			MergedOnly:         mergedOnly,
			MinMergeConfidence: minConfidence,
		})
		if err != nil {
			return err
		}

		for _, result := range report.Results {
			fmt.Printf("%-20s %s (%s)\n", result.Action, result.Branch, result.Reason)
			if result.Err != "" && verbose {
				fmt.Printf("  error: %s\n", result.Err)
			}
		}
		fmt.Printf("\n%d evaluated: %d cleaned, %d skipped, %d failed\n",
			report.Total, report.Cleaned, report.Skipped, report.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().String("strategy", string(types.StrategyDiscard), "cleanup strategy")
	cleanupCmd.Flags().Int("min-age", -1, "minimum worktree age in hours (default from config)")
	cleanupCmd.Flags().BoolP("force", "f", false, "override warning-level safety violations")
	cleanupCmd.Flags().BoolP("dry-run", "n", false, "report what would happen without side effects")
	cleanupCmd.Flags().BoolP("yes", "y", false, "skip interactive confirmation")
	cleanupCmd.Flags().String("prefix", "", "only consider branches with this prefix")
	cleanupCmd.Flags().Bool("merged-only", false, "only retire branches detected as merged")
	cleanupCmd.Flags().Float64("min-confidence", 0, "minimum merge-detection confidence")
}
