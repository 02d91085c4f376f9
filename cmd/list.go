package cmd

import (
	"fmt"
	"time"

	"github.com/awhite/vibetree/pkg/types"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List worktrees",
	Long: `List all worktrees of the current repository.

With --status each worktree also gets a status snapshot: dirty files,
ahead/behind counts, and merge detection when configured.

Examples:
  vibetree list
  vibetree list --status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := setupManager()
		if err != nil {
			return err
		}

		withStatus, _ := cmd.Flags().GetBool("status")

		var records []*types.WorktreeRecord
		if withStatus {
			records, err = manager.ListWorktreesWithStatus()
		} else {
			records, err = manager.ListWorktrees()
		}
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No worktrees found")
			return nil
		}

		table := newUI().NewTable()
		if withStatus {
			table.SetHeaders("Branch", "Path", "Age", "Severity", "Remote")
		} else {
			table.SetHeaders("Branch", "Path", "Age", "Head")
		}

		for _, record := range records {
			age := formatAge(record.Age)
			if withStatus {
				severity, remote := "-", "-"
				if record.Status != nil {
					severity = string(record.Status.Severity)
					remote = record.Status.Remote.String()
				}
				table.AddRow(record.Branch, record.Path, age, severity, remote)
			} else {
				table.AddRow(record.Branch, record.Path, age, record.Head)
			}
		}
		table.Render()
		return nil
	},
}

func formatAge(age time.Duration) string {
	switch {
	case age <= 0:
		return "-"
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("status", false, "include a status snapshot per worktree")
}
