package types

// WorktreeMode selects where worktree directories are created.
type WorktreeMode string

const (
	// ModeLocal keeps worktrees inside the repository under BaseDir.
	ModeLocal WorktreeMode = "local"
	// ModeGlobal keeps worktrees in a shared directory outside the repository.
	ModeGlobal WorktreeMode = "global"
)

// WorktreeConfig is the global worktree configuration document.
type WorktreeConfig struct {
	Mode          WorktreeMode `yaml:"mode" mapstructure:"mode"`
	BaseDir       string       `yaml:"base_dir" mapstructure:"base_dir"`
	Prefix        string       `yaml:"prefix" mapstructure:"prefix"`
	AutoGitignore bool         `yaml:"auto_gitignore" mapstructure:"auto_gitignore"`
	DefaultEditor string       `yaml:"default_editor" mapstructure:"default_editor"`

	Cleanup        CleanupConfig        `yaml:"cleanup" mapstructure:"cleanup"`
	MergeDetection MergeDetectionConfig `yaml:"merge_detection" mapstructure:"merge_detection"`
	Status         StatusConfig         `yaml:"status" mapstructure:"status"`
}

// CleanupConfig holds cleanup policy defaults.
type CleanupConfig struct {
	AgeThresholdHours   int  `yaml:"age_threshold_hours" mapstructure:"age_threshold_hours"`
	VerifyRemote        bool `yaml:"verify_remote" mapstructure:"verify_remote"`
	AutoDeleteBranch    bool `yaml:"auto_delete_branch" mapstructure:"auto_delete_branch"`
	RequireConfirmation bool `yaml:"require_confirmation" mapstructure:"require_confirmation"`
}

// MergeDetectionConfig selects which strategies run and against which
// main branches. Confidence constants are policy defaults, kept
// configurable rather than hard-coded.
type MergeDetectionConfig struct {
	UseGitHubCLI bool             `yaml:"use_github_cli" mapstructure:"use_github_cli"`
	Methods      []string         `yaml:"methods" mapstructure:"methods"`
	MainBranches []string         `yaml:"main_branches" mapstructure:"main_branches"`
	Confidence   ConfidenceConfig `yaml:"confidence" mapstructure:"confidence"`
}

// ConfidenceConfig holds the per-strategy confidence constants.
type ConfidenceConfig struct {
	StandardMerged   float64 `yaml:"standard_merged" mapstructure:"standard_merged"`
	StandardUnmerged float64 `yaml:"standard_unmerged" mapstructure:"standard_unmerged"`
	SquashZeroDiff   float64 `yaml:"squash_zero_diff" mapstructure:"squash_zero_diff"`
	SquashLogMention float64 `yaml:"squash_log_mention" mapstructure:"squash_log_mention"`
	SquashTimestamp  float64 `yaml:"squash_timestamp" mapstructure:"squash_timestamp"`
	ContentWeight    float64 `yaml:"content_weight" mapstructure:"content_weight"`
	ContentThreshold float64 `yaml:"content_threshold" mapstructure:"content_threshold"`
	GitHubPR         float64 `yaml:"github_pr" mapstructure:"github_pr"`
}

// StatusConfig controls how much detail status output carries.
type StatusConfig struct {
	ShowFiles          bool `yaml:"show_files" mapstructure:"show_files"`
	MaxFilesShown      int  `yaml:"max_files_shown" mapstructure:"max_files_shown"`
	ShowCommitMessages bool `yaml:"show_commit_messages" mapstructure:"show_commit_messages"`
	MaxCommitsShown    int  `yaml:"max_commits_shown" mapstructure:"max_commits_shown"`
}

// DefaultWorktreeConfig returns the default configuration.
func DefaultWorktreeConfig() *WorktreeConfig {
	return &WorktreeConfig{
		Mode:          ModeLocal,
		BaseDir:       ".worktrees",
		Prefix:        "vibe-ws/",
		AutoGitignore: true,
		DefaultEditor: "cursor",
		Cleanup: CleanupConfig{
			AgeThresholdHours:   24,
			VerifyRemote:        true,
			AutoDeleteBranch:    true,
			RequireConfirmation: true,
		},
		MergeDetection: MergeDetectionConfig{
			UseGitHubCLI: false,
			Methods: []string{
				string(MethodStandard),
				string(MethodSquash),
			},
			MainBranches: []string{"main", "master"},
			Confidence:   DefaultConfidenceConfig(),
		},
		Status: StatusConfig{
			ShowFiles:          true,
			MaxFilesShown:      10,
			ShowCommitMessages: true,
			MaxCommitsShown:    5,
		},
	}
}

// DefaultConfidenceConfig returns the default confidence constants.
func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		StandardMerged:   0.95,
		StandardUnmerged: 0.8,
		SquashZeroDiff:   0.6,
		SquashLogMention: 0.7,
		SquashTimestamp:  0.5,
		ContentWeight:    0.7,
		ContentThreshold: 0.8,
		GitHubPR:         0.9,
	}
}

// WorktreeOverride is a per-repository configuration block. Set fields
// replace the corresponding global fields, unset fields inherit.
type WorktreeOverride struct {
	Mode          *WorktreeMode `yaml:"mode"`
	BaseDir       *string       `yaml:"base_dir"`
	Prefix        *string       `yaml:"prefix"`
	AutoGitignore *bool         `yaml:"auto_gitignore"`
	DefaultEditor *string       `yaml:"default_editor"`

	Cleanup        *CleanupOverride        `yaml:"cleanup"`
	MergeDetection *MergeDetectionOverride `yaml:"merge_detection"`
	Status         *StatusOverride         `yaml:"status"`
}

// CleanupOverride overrides cleanup policy fields.
type CleanupOverride struct {
	AgeThresholdHours   *int  `yaml:"age_threshold_hours"`
	VerifyRemote        *bool `yaml:"verify_remote"`
	AutoDeleteBranch    *bool `yaml:"auto_delete_branch"`
	RequireConfirmation *bool `yaml:"require_confirmation"`
}

// MergeDetectionOverride overrides merge-detection fields.
type MergeDetectionOverride struct {
	UseGitHubCLI *bool    `yaml:"use_github_cli"`
	Methods      []string `yaml:"methods"`
	MainBranches []string `yaml:"main_branches"`
}

// StatusOverride overrides status display fields.
type StatusOverride struct {
	ShowFiles          *bool `yaml:"show_files"`
	MaxFilesShown      *int  `yaml:"max_files_shown"`
	ShowCommitMessages *bool `yaml:"show_commit_messages"`
	MaxCommitsShown    *int  `yaml:"max_commits_shown"`
}

// Apply merges the override onto a copy of base, field by field.
func (o *WorktreeOverride) Apply(base *WorktreeConfig) *WorktreeConfig {
	merged := *base
	if o == nil {
		return &merged
	}
	if o.Mode != nil {
		merged.Mode = *o.Mode
	}
	if o.BaseDir != nil {
		merged.BaseDir = *o.BaseDir
	}
	if o.Prefix != nil {
		merged.Prefix = *o.Prefix
	}
	if o.AutoGitignore != nil {
		merged.AutoGitignore = *o.AutoGitignore
	}
	if o.DefaultEditor != nil {
		merged.DefaultEditor = *o.DefaultEditor
	}
	if c := o.Cleanup; c != nil {
		if c.AgeThresholdHours != nil {
			merged.Cleanup.AgeThresholdHours = *c.AgeThresholdHours
		}
		if c.VerifyRemote != nil {
			merged.Cleanup.VerifyRemote = *c.VerifyRemote
		}
		if c.AutoDeleteBranch != nil {
			merged.Cleanup.AutoDeleteBranch = *c.AutoDeleteBranch
		}
		if c.RequireConfirmation != nil {
			merged.Cleanup.RequireConfirmation = *c.RequireConfirmation
		}
	}
	if md := o.MergeDetection; md != nil {
		if md.UseGitHubCLI != nil {
			merged.MergeDetection.UseGitHubCLI = *md.UseGitHubCLI
		}
		if len(md.Methods) > 0 {
			merged.MergeDetection.Methods = md.Methods
		}
		if len(md.MainBranches) > 0 {
			merged.MergeDetection.MainBranches = md.MainBranches
		}
	}
	if s := o.Status; s != nil {
		if s.ShowFiles != nil {
			merged.Status.ShowFiles = *s.ShowFiles
		}
		if s.MaxFilesShown != nil {
			merged.Status.MaxFilesShown = *s.MaxFilesShown
		}
		if s.ShowCommitMessages != nil {
			merged.Status.ShowCommitMessages = *s.ShowCommitMessages
		}
		if s.MaxCommitsShown != nil {
			merged.Status.MaxCommitsShown = *s.MaxCommitsShown
		}
	}
	return &merged
}
