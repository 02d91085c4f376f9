package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/awhite/vibetree/pkg/types"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewManager().Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, types.ModeLocal, cfg.Mode)
	assert.Equal(t, ".worktrees", cfg.BaseDir)
	assert.Equal(t, "vibe-ws/", cfg.Prefix)
	assert.True(t, cfg.AutoGitignore)
	assert.Equal(t, 24, cfg.Cleanup.AgeThresholdHours)
	assert.Equal(t, []string{"standard", "squash"}, cfg.MergeDetection.Methods)
	assert.Equal(t, []string{"main", "master"}, cfg.MergeDetection.MainBranches)
}

func TestLoad_PerRepoOverride(t *testing.T) {
	repoRoot := t.TempDir()
	override := `worktree:
  prefix: team-x/
  mode: global
  base_dir: /srv/worktrees
  cleanup:
    age_threshold_hours: 72
  merge_detection:
    main_branches: [develop]
`
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, OverrideFileName), []byte(override), 0o644))

	cfg, err := NewManager().Load(repoRoot)
	require.NoError(t, err)

	assert.Equal(t, "team-x/", cfg.Prefix)
	assert.Equal(t, types.ModeGlobal, cfg.Mode)
	assert.Equal(t, "/srv/worktrees", cfg.BaseDir)
	assert.Equal(t, 72, cfg.Cleanup.AgeThresholdHours)
	assert.Equal(t, []string{"develop"}, cfg.MergeDetection.MainBranches)

	// Untouched fields keep their defaults.
	assert.True(t, cfg.AutoGitignore)
	assert.Equal(t, []string{"standard", "squash"}, cfg.MergeDetection.Methods)
	assert.True(t, cfg.Cleanup.AutoDeleteBranch)
}

func TestLoad_MalformedOverride(t *testing.T) {
	repoRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, OverrideFileName),
		[]byte("worktree: [not a mapping"), 0o644))

	_, err := NewManager().Load(repoRoot)
	require.Error(t, err)
	var configErr *types.ConfigError
	assert.ErrorAs(t, err, &configErr)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("VIBETREE_WORKTREE_PREFIX", "env-prefix/")
	t.Setenv("VIBETREE_WORKTREE_CLEANUP_AGE_THRESHOLD_HOURS", "48")
	t.Setenv("VIBETREE_WORKTREE_AUTO_GITIGNORE", "false")

	cfg, err := NewManager().Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "env-prefix/", cfg.Prefix)
	assert.Equal(t, 48, cfg.Cleanup.AgeThresholdHours)
	assert.False(t, cfg.AutoGitignore)

	// Untouched fields keep their defaults.
	assert.Equal(t, ".worktrees", cfg.BaseDir)
	assert.Equal(t, types.ModeLocal, cfg.Mode)
}

func TestLoad_EnvOverridesGlobalFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	globalPath := filepath.Join(t.TempDir(), "config.yaml")
	global := "worktree:\n  prefix: file-prefix/\n  base_dir: .file-worktrees\n"
	require.NoError(t, os.WriteFile(globalPath, []byte(global), 0o644))
	viper.SetConfigFile(globalPath)
	require.NoError(t, viper.ReadInConfig())

	t.Setenv("VIBETREE_WORKTREE_PREFIX", "env-prefix/")

	cfg, err := NewManager().Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "env-prefix/", cfg.Prefix, "env must outrank the global file")
	assert.Equal(t, ".file-worktrees", cfg.BaseDir, "the global file must outrank defaults")
}

func TestLoad_PerRepoOverrideOutranksEnv(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("VIBETREE_WORKTREE_PREFIX", "env-prefix/")

	repoRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, OverrideFileName),
		[]byte("worktree:\n  prefix: repo-prefix/\n"), 0o644))

	cfg, err := NewManager().Load(repoRoot)
	require.NoError(t, err)

	assert.Equal(t, "repo-prefix/", cfg.Prefix)
}

func TestLoad_Cached(t *testing.T) {
	m := NewManager()
	first, err := m.Load(t.TempDir())
	require.NoError(t, err)
	second, err := m.Load(t.TempDir())
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestOverrideApply_FieldByField(t *testing.T) {
	base := types.DefaultWorktreeConfig()
	prefix := "other/"
	autoGitignore := false
	requireConfirmation := false

	override := &types.WorktreeOverride{
		Prefix:        &prefix,
		AutoGitignore: &autoGitignore,
		Cleanup: &types.CleanupOverride{
			RequireConfirmation: &requireConfirmation,
		},
	}
	merged := override.Apply(base)

	assert.Equal(t, "other/", merged.Prefix)
	assert.False(t, merged.AutoGitignore)
	assert.False(t, merged.Cleanup.RequireConfirmation)

	// Everything else inherits, and the base is untouched.
	assert.Equal(t, base.Mode, merged.Mode)
	assert.Equal(t, base.BaseDir, merged.BaseDir)
	assert.True(t, base.AutoGitignore)
	assert.Equal(t, "vibe-ws/", base.Prefix)
}

func TestOverrideApply_Nil(t *testing.T) {
	base := types.DefaultWorktreeConfig()
	var override *types.WorktreeOverride
	merged := override.Apply(base)
	assert.Equal(t, base, merged)
	assert.NotSame(t, base, merged)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *types.WorktreeConfig)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*types.WorktreeConfig) {},
		},
		{
			name:    "bad mode",
			mutate:  func(cfg *types.WorktreeConfig) { cfg.Mode = "hybrid" },
			wantErr: "mode",
		},
		{
			name:    "empty base dir",
			mutate:  func(cfg *types.WorktreeConfig) { cfg.BaseDir = "" },
			wantErr: "base_dir",
		},
		{
			name: "relative base dir in global mode",
			mutate: func(cfg *types.WorktreeConfig) {
				cfg.Mode = types.ModeGlobal
				cfg.BaseDir = "worktrees"
			},
			wantErr: "absolute",
		},
		{
			name: "home-relative base dir in global mode",
			mutate: func(cfg *types.WorktreeConfig) {
				cfg.Mode = types.ModeGlobal
				cfg.BaseDir = "~/worktrees"
			},
		},
		{
			name:    "negative age threshold",
			mutate:  func(cfg *types.WorktreeConfig) { cfg.Cleanup.AgeThresholdHours = -1 },
			wantErr: "age_threshold_hours",
		},
		{
			name: "unknown detection method",
			mutate: func(cfg *types.WorktreeConfig) {
				cfg.MergeDetection.Methods = []string{"quantum"}
			},
			wantErr: "merge detection method",
		},
		{
			name: "no main branches",
			mutate: func(cfg *types.WorktreeConfig) {
				cfg.MergeDetection.MainBranches = nil
			},
			wantErr: "main_branches",
		},
		{
			name: "confidence out of range",
			mutate: func(cfg *types.WorktreeConfig) {
				cfg.MergeDetection.Confidence.GitHubPR = 1.5
			},
			wantErr: "within [0,1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.DefaultWorktreeConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	rows := Summary(types.DefaultWorktreeConfig())
	require.NotEmpty(t, rows)

	byKey := make(map[string]string, len(rows))
	for _, row := range rows {
		byKey[row[0]] = row[1]
	}
	assert.Equal(t, "local", byKey["mode"])
	assert.Equal(t, "vibe-ws/", byKey["prefix"])
	assert.Equal(t, "24", byKey["cleanup.age_threshold_hours"])
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "worktrees"), ExpandHome("~/worktrees"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "relative", ExpandHome("relative"))
}
