package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/awhite/vibetree/pkg/types"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// OverrideFileName is the per-repository override document, merged
// field-by-field onto the global configuration.
const OverrideFileName = ".vibetree.yaml"

// Manager handles configuration loading and management.
//
// Precedence, lowest to highest: built-in defaults, the global config
// file, environment variables (handled by viper), the per-repository
// override file.
type Manager struct {
	effective *types.WorktreeConfig
	mu        sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// Load resolves the effective configuration for a repository.
func (m *Manager) Load(repoRoot string) (*types.WorktreeConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.effective != nil {
		return m.effective, nil
	}

	cfg := types.DefaultWorktreeConfig()

	// Unmarshal through the root viper so the global file and VIBETREE_*
	// env overrides both apply, env winning over the file.
	bindWorktreeEnv()
	var doc struct {
		Worktree *types.WorktreeConfig `mapstructure:"worktree"`
	}
	doc.Worktree = cfg
	if err := viper.Unmarshal(&doc); err != nil {
		return nil, types.NewConfigError("load-config",
			"failed to unmarshal global worktree config", err)
	}

	override, err := loadOverride(repoRoot)
	if err != nil {
		return nil, err
	}
	cfg = override.Apply(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	m.effective = cfg
	return cfg, nil
}

// worktreeKeys are the settable keys under "worktree". They are bound
// to environment variables explicitly: automatic env only surfaces
// keys viper already knows, so without this an env override is dropped
// whenever the global config file omits the key.
var worktreeKeys = []string{
	"worktree.mode",
	"worktree.base_dir",
	"worktree.prefix",
	"worktree.auto_gitignore",
	"worktree.default_editor",
	"worktree.cleanup.age_threshold_hours",
	"worktree.cleanup.verify_remote",
	"worktree.cleanup.auto_delete_branch",
	"worktree.cleanup.require_confirmation",
	"worktree.merge_detection.use_github_cli",
	"worktree.merge_detection.methods",
	"worktree.merge_detection.main_branches",
	"worktree.merge_detection.confidence.standard_merged",
	"worktree.merge_detection.confidence.standard_unmerged",
	"worktree.merge_detection.confidence.squash_zero_diff",
	"worktree.merge_detection.confidence.squash_log_mention",
	"worktree.merge_detection.confidence.squash_timestamp",
	"worktree.merge_detection.confidence.content_weight",
	"worktree.merge_detection.confidence.content_threshold",
	"worktree.merge_detection.confidence.github_pr",
	"worktree.status.show_files",
	"worktree.status.max_files_shown",
	"worktree.status.show_commit_messages",
	"worktree.status.max_commits_shown",
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// bindWorktreeEnv binds every worktree key to its VIBETREE_* variable,
// e.g. worktree.prefix to VIBETREE_WORKTREE_PREFIX. Explicit names keep
// the bindings independent of how the CLI configures automatic env.
func bindWorktreeEnv() {
	for _, key := range worktreeKeys {
		envName := "VIBETREE_" + strings.ToUpper(envKeyReplacer.Replace(key))
		_ = viper.BindEnv(key, envName)
	}
}

// loadOverride reads the per-repository override file, if present.
func loadOverride(repoRoot string) (*types.WorktreeOverride, error) {
	path := filepath.Join(repoRoot, OverrideFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.NewConfigError("load-override",
			fmt.Sprintf("failed to read %s", OverrideFileName), err)
	}

	var doc struct {
		Worktree *types.WorktreeOverride `yaml:"worktree"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, types.NewConfigError("load-override",
			fmt.Sprintf("failed to parse %s", OverrideFileName), err)
	}
	return doc.Worktree, nil
}

// Validate checks that a configuration document is usable.
func Validate(cfg *types.WorktreeConfig) error {
	if cfg.Mode != types.ModeLocal && cfg.Mode != types.ModeGlobal {
		return types.NewConfigError("validate-config",
			fmt.Sprintf("mode must be %q or %q, got %q", types.ModeLocal, types.ModeGlobal, cfg.Mode), nil)
	}
	if cfg.BaseDir == "" {
		return types.NewConfigError("validate-config", "base_dir must not be empty", nil)
	}
	if cfg.Mode == types.ModeGlobal && !filepath.IsAbs(expandHome(cfg.BaseDir)) {
		return types.NewConfigError("validate-config",
			"base_dir must be absolute (or ~-relative) in global mode", nil)
	}
	if cfg.Cleanup.AgeThresholdHours < 0 {
		return types.NewConfigError("validate-config", "cleanup.age_threshold_hours must not be negative", nil)
	}
	for _, method := range cfg.MergeDetection.Methods {
		switch types.MergeDetectionMethod(method) {
		case types.MethodStandard, types.MethodSquash, types.MethodGitHubPR, types.MethodFileContent:
		default:
			return types.NewConfigError("validate-config",
				fmt.Sprintf("unknown merge detection method: %q", method), nil)
		}
	}
	if len(cfg.MergeDetection.MainBranches) == 0 {
		return types.NewConfigError("validate-config",
			"merge_detection.main_branches must name at least one branch", nil)
	}
	conf := cfg.MergeDetection.Confidence
	for name, v := range map[string]float64{
		"standard_merged":    conf.StandardMerged,
		"standard_unmerged":  conf.StandardUnmerged,
		"squash_zero_diff":   conf.SquashZeroDiff,
		"squash_log_mention": conf.SquashLogMention,
		"squash_timestamp":   conf.SquashTimestamp,
		"content_weight":     conf.ContentWeight,
		"content_threshold":  conf.ContentThreshold,
		"github_pr":          conf.GitHubPR,
	} {
		if v < 0 || v > 1 {
			return types.NewConfigError("validate-config",
				fmt.Sprintf("confidence.%s must be within [0,1], got %v", name, v), nil)
		}
	}
	return nil
}

// Summary returns the effective configuration as ordered key/value rows
// for diagnostic display.
func Summary(cfg *types.WorktreeConfig) [][2]string {
	return [][2]string{
		{"mode", string(cfg.Mode)},
		{"base_dir", cfg.BaseDir},
		{"prefix", cfg.Prefix},
		{"auto_gitignore", fmt.Sprintf("%t", cfg.AutoGitignore)},
		{"default_editor", cfg.DefaultEditor},
		{"cleanup.age_threshold_hours", fmt.Sprintf("%d", cfg.Cleanup.AgeThresholdHours)},
		{"cleanup.verify_remote", fmt.Sprintf("%t", cfg.Cleanup.VerifyRemote)},
		{"cleanup.auto_delete_branch", fmt.Sprintf("%t", cfg.Cleanup.AutoDeleteBranch)},
		{"cleanup.require_confirmation", fmt.Sprintf("%t", cfg.Cleanup.RequireConfirmation)},
		{"merge_detection.use_github_cli", fmt.Sprintf("%t", cfg.MergeDetection.UseGitHubCLI)},
		{"merge_detection.methods", fmt.Sprintf("%v", cfg.MergeDetection.Methods)},
		{"merge_detection.main_branches", fmt.Sprintf("%v", cfg.MergeDetection.MainBranches)},
		{"status.show_files", fmt.Sprintf("%t", cfg.Status.ShowFiles)},
		{"status.max_files_shown", fmt.Sprintf("%d", cfg.Status.MaxFilesShown)},
		{"status.show_commit_messages", fmt.Sprintf("%t", cfg.Status.ShowCommitMessages)},
		{"status.max_commits_shown", fmt.Sprintf("%d", cfg.Status.MaxCommitsShown)},
	}
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// ExpandHome resolves a leading ~/ against the user home directory.
func ExpandHome(path string) string {
	return expandHome(path)
}
