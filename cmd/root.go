package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/awhite/vibetree/internal/config"
	"github.com/awhite/vibetree/internal/git"
	"github.com/awhite/vibetree/internal/ui"
	"github.com/awhite/vibetree/internal/worktree"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "vibetree",
	Short:   "Task-scoped git worktree manager",
	Version: version,
	Long: `Vibetree manages git worktrees for isolated feature-branch development.

Each task gets its own branch and worktree directory; cleanup retires
worktrees safely, using merge detection to decide what has already
landed upstream.

Examples:
  vibetree create "Fix: issue #456"          # Create a worktree for a task
  vibetree list --status                     # List worktrees with status
  vibetree remove vibe-ws/fix-issue-456      # Remove a worktree by branch
  vibetree cleanup --merged-only --dry-run   # Preview cleanup of merged work
  vibetree config summary                    # Show effective configuration`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/vibetree/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home + "/.config/vibetree")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("VIBETREE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// setupManager creates and initializes the worktree manager
func setupManager() (*worktree.Manager, error) {
	runner := git.NewProcessGateway()

	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	repoRoot, err := git.RepoRoot(runner, workingDir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.NewManager().Load(repoRoot)
	if err != nil {
		return nil, err
	}

	return worktree.NewManager(runner, cfg, repoRoot, newUI()), nil
}

// newUI builds the UI manager shared by all commands, honoring the
// no_color setting.
func newUI() *ui.Manager {
	return ui.NewManager(!viper.GetBool("no_color"), verbose)
}
