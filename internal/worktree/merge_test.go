package worktree

import (
	"testing"

	"github.com/awhite/vibetree/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(runner *fakeRunner, methods ...string) *Detector {
	cfg := &types.MergeDetectionConfig{
		Methods:      methods,
		MainBranches: []string{"main", "master"},
		Confidence:   types.DefaultConfidenceConfig(),
	}
	return NewDetector(runner, "/repo", cfg, nil)
}

func TestFuseAttempts(t *testing.T) {
	tests := []struct {
		name           string
		attempts       []types.MergeAttempt
		wantMerged     bool
		wantConfidence float64
		wantMethod     types.MergeDetectionMethod
	}{
		{
			name: "merged beats higher-confidence not-merged",
			attempts: []types.MergeAttempt{
				{Method: types.MethodSquash, IsMerged: true, Confidence: 0.6},
				{Method: types.MethodStandard, IsMerged: false, Confidence: 0.9},
			},
			wantMerged:     true,
			wantConfidence: 0.6,
			wantMethod:     types.MethodSquash,
		},
		{
			name: "highest confidence wins within merged",
			attempts: []types.MergeAttempt{
				{Method: types.MethodSquash, IsMerged: true, Confidence: 0.6},
				{Method: types.MethodStandard, IsMerged: true, Confidence: 0.95},
			},
			wantMerged:     true,
			wantConfidence: 0.95,
			wantMethod:     types.MethodStandard,
		},
		{
			name: "highest confidence wins within not-merged",
			attempts: []types.MergeAttempt{
				{Method: types.MethodSquash, IsMerged: false, Confidence: 0.5},
				{Method: types.MethodStandard, IsMerged: false, Confidence: 0.8},
			},
			wantMerged:     false,
			wantConfidence: 0.8,
			wantMethod:     types.MethodStandard,
		},
		{
			name: "errored attempts are ignored",
			attempts: []types.MergeAttempt{
				{Method: types.MethodStandard, Err: "no main branch"},
				{Method: types.MethodSquash, IsMerged: true, Confidence: 0.7},
			},
			wantMerged:     true,
			wantConfidence: 0.7,
			wantMethod:     types.MethodSquash,
		},
		{
			name: "all errored",
			attempts: []types.MergeAttempt{
				{Method: types.MethodStandard, Err: "boom"},
				{Method: types.MethodSquash, Err: "boom"},
			},
			wantMerged:     false,
			wantConfidence: 0.0,
		},
		{
			name:           "no attempts",
			attempts:       nil,
			wantMerged:     false,
			wantConfidence: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := fuseAttempts(tt.attempts)
			assert.Equal(t, tt.wantMerged, info.IsMerged)
			assert.InDelta(t, tt.wantConfidence, info.Confidence, 1e-9)
			if tt.wantMethod != "" {
				assert.Equal(t, tt.wantMethod, info.Method)
			}
			assert.Len(t, info.Attempts, len(tt.attempts))
		})
	}
}

func TestDetect_InvalidBranchName(t *testing.T) {
	detector := newTestDetector(newFakeRunner(), string(types.MethodStandard))
	_, err := detector.Detect("bad..branch")
	require.Error(t, err)
	var validationErr *types.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestDetectStandard_Merged(t *testing.T) {
	runner := newFakeRunner()
	runner.respond("branch --merged main --format=%(refname:short)",
		"main\nvibe-ws/task-a\nother")
	runner.respond("branch --merged master --format=%(refname:short)", "")

	detector := newTestDetector(runner, string(types.MethodStandard))
	info, err := detector.Detect("vibe-ws/task-a")
	require.NoError(t, err)

	assert.True(t, info.IsMerged)
	assert.InDelta(t, 0.95, info.Confidence, 1e-9)
	assert.Equal(t, types.MethodStandard, info.Method)
}

func TestDetectStandard_NotMerged(t *testing.T) {
	runner := newFakeRunner()
	runner.respond("branch --merged main --format=%(refname:short)", "main")
	runner.fail("branch --merged master", "fatal: malformed object name master")

	detector := newTestDetector(runner, string(types.MethodStandard))
	info, err := detector.Detect("vibe-ws/task-a")
	require.NoError(t, err)

	assert.False(t, info.IsMerged)
	assert.InDelta(t, 0.8, info.Confidence, 1e-9)
}

func TestDetectSquash_ZeroDiff(t *testing.T) {
	runner := newFakeRunner()
	runner.respond("rev-parse --verify --quiet refs/heads/main", "")
	runner.respond("merge-base main vibe-ws/task-a", "base0000")
	runner.respond("diff --quiet base0000 vibe-ws/task-a", "")

	detector := newTestDetector(runner, string(types.MethodSquash))
	info, err := detector.Detect("vibe-ws/task-a")
	require.NoError(t, err)

	assert.True(t, info.IsMerged)
	assert.InDelta(t, 0.6, info.Confidence, 1e-9)
	assert.Equal(t, types.MethodSquash, info.Method)
}

func TestDetectSquash_LogMention(t *testing.T) {
	runner := newFakeRunner()
	runner.respond("rev-parse --verify --quiet refs/heads/main", "")
	runner.respond("merge-base main vibe-ws/task-123", "base0000")
	runner.fail("diff --quiet base0000 vibe-ws/task-123", "")
	runner.respond("log base0000..main --oneline",
		"abc1234 Squash merge task-123 (#123)")

	detector := newTestDetector(runner, string(types.MethodSquash))
	info, err := detector.Detect("vibe-ws/task-123")
	require.NoError(t, err)

	assert.True(t, info.IsMerged)
	assert.InDelta(t, 0.7, info.Confidence, 1e-9)
}

func TestDetectSquash_PRNumberMention(t *testing.T) {
	runner := newFakeRunner()
	runner.respond("rev-parse --verify --quiet refs/heads/main", "")
	runner.respond("merge-base main vibe-ws/fix-456", "base0000")
	runner.fail("diff --quiet base0000 vibe-ws/fix-456", "")
	// The subject mentions neither the branch nor its last segment, only
	// the PR number derived from the trailing digits.
	runner.respond("log base0000..main --oneline",
		"abc1234 Repair the flaky login flow (#456)")

	detector := newTestDetector(runner, string(types.MethodSquash))
	info, err := detector.Detect("vibe-ws/fix-456")
	require.NoError(t, err)

	assert.True(t, info.IsMerged)
	assert.InDelta(t, 0.7, info.Confidence, 1e-9)
}

func TestDetectSquash_TimestampCorrelation(t *testing.T) {
	runner := newFakeRunner()
	runner.respond("rev-parse --verify --quiet refs/heads/main", "")
	runner.respond("merge-base main vibe-ws/task-a", "base0000")
	runner.fail("diff --quiet base0000 vibe-ws/task-a", "")
	runner.respond("log base0000..main --oneline", "abc1234 Unrelated subject")
	runner.respond("log -1 --format=%ct vibe-ws/task-a", "1700000000")
	// Main commit 30 minutes after the branch tip, inside the window.
	runner.respond("log base0000..main --format=%ct", "1700001800")

	detector := newTestDetector(runner, string(types.MethodSquash))
	info, err := detector.Detect("vibe-ws/task-a")
	require.NoError(t, err)

	assert.True(t, info.IsMerged)
	assert.InDelta(t, 0.5, info.Confidence, 1e-9)
}

func TestDetectSquash_ContentMatch(t *testing.T) {
	runner := newFakeRunner()
	runner.respond("rev-parse --verify --quiet refs/heads/main", "")
	runner.respond("merge-base main vibe-ws/task-a", "base0000")
	runner.fail("diff --quiet base0000 vibe-ws/task-a", "")
	runner.respond("log base0000..main --oneline", "abc1234 Unrelated subject")
	runner.respond("log -1 --format=%ct vibe-ws/task-a", "1700000000")
	// Main commit two days later, outside the correlation window.
	runner.respond("log base0000..main --format=%ct", "1700172800")
	runner.respond("diff --name-only base0000 vibe-ws/task-a", "a.go\nb.go")
	runner.respond("show vibe-ws/task-a:a.go", "content-a")
	runner.respond("show main:a.go", "content-a")
	runner.respond("show vibe-ws/task-a:b.go", "content-b")
	runner.respond("show main:b.go", "content-b")

	detector := newTestDetector(runner, string(types.MethodSquash))
	info, err := detector.Detect("vibe-ws/task-a")
	require.NoError(t, err)

	assert.True(t, info.IsMerged)
	// 100% match scaled by the content weight.
	assert.InDelta(t, 0.7, info.Confidence, 1e-9)
}

func TestDetectSquash_ContentBelowThreshold(t *testing.T) {
	runner := newFakeRunner()
	runner.respond("rev-parse --verify --quiet refs/heads/main", "")
	runner.respond("merge-base main vibe-ws/task-a", "base0000")
	runner.fail("diff --quiet base0000 vibe-ws/task-a", "")
	runner.respond("log base0000..main --oneline", "abc1234 Unrelated subject")
	runner.respond("log -1 --format=%ct vibe-ws/task-a", "1700000000")
	runner.respond("log base0000..main --format=%ct", "1700172800")
	runner.respond("diff --name-only base0000 vibe-ws/task-a", "a.go\nb.go")
	runner.respond("show vibe-ws/task-a:a.go", "content-a")
	runner.respond("show main:a.go", "content-a")
	runner.respond("show vibe-ws/task-a:b.go", "branch version")
	runner.respond("show main:b.go", "main version")

	detector := newTestDetector(runner, string(types.MethodSquash))
	info, err := detector.Detect("vibe-ws/task-a")
	require.NoError(t, err)

	// 50% match is below the 80% threshold.
	assert.False(t, info.IsMerged)
}

func TestDetect_GitHubSkippedWhenDisabled(t *testing.T) {
	runner := newFakeRunner()
	runner.respond("branch --merged main --format=%(refname:short)", "main")
	runner.respond("branch --merged master --format=%(refname:short)", "")

	detector := newTestDetector(runner,
		string(types.MethodStandard), string(types.MethodGitHubPR))
	info, err := detector.Detect("vibe-ws/task-a")
	require.NoError(t, err)

	// Only the standard attempt should be recorded.
	require.Len(t, info.Attempts, 1)
	assert.Equal(t, types.MethodStandard, info.Attempts[0].Method)
	assert.False(t, runner.called("gh "))
}

func TestDetect_UnknownMethodRecordsError(t *testing.T) {
	runner := newFakeRunner()
	detector := newTestDetector(runner, "quantum")
	info, err := detector.Detect("vibe-ws/task-a")
	require.NoError(t, err)

	require.Len(t, info.Attempts, 1)
	assert.NotEmpty(t, info.Attempts[0].Err)
	assert.False(t, info.IsMerged)
	assert.Zero(t, info.Confidence)
}

func TestDetectSquash_NoMainBranch(t *testing.T) {
	runner := newFakeRunner()
	runner.fail("rev-parse --verify --quiet refs/heads/main", "")
	runner.fail("rev-parse --verify --quiet refs/heads/master", "")

	detector := newTestDetector(runner, string(types.MethodSquash))
	info, err := detector.Detect("vibe-ws/task-a")
	require.NoError(t, err)

	require.Len(t, info.Attempts, 1)
	assert.Contains(t, info.Attempts[0].Err, "main branches")
	assert.False(t, info.IsMerged)
	assert.Zero(t, info.Confidence)
}
