package git

import (
	"errors"
	"testing"

	"github.com/awhite/vibetree/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	output string
	err    error
}

func (s *stubRunner) Run(dir string, args ...string) (string, error)   { return s.output, s.err }
func (s *stubRunner) RunGH(dir string, args ...string) (string, error) { return s.output, s.err }

func TestRepoRoot(t *testing.T) {
	root, err := RepoRoot(&stubRunner{output: "/home/dev/project"}, "/home/dev/project/sub")
	require.NoError(t, err)
	assert.Equal(t, "/home/dev/project", root)
}

func TestRepoRoot_NotARepository(t *testing.T) {
	cause := errors.New("fatal: not a git repository")
	_, err := RepoRoot(&stubRunner{err: cause}, "/tmp")
	require.Error(t, err)

	var notFound *types.NotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.ErrorIs(t, err, cause)
}

func TestProcessGateway_TrimsOutput(t *testing.T) {
	gw := &ProcessGateway{gitCommand: "echo", ghCommand: "echo"}
	out, err := gw.Run("", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestProcessGateway_FailurePreservesStderr(t *testing.T) {
	gw := &ProcessGateway{gitCommand: "sh", ghCommand: "sh"}
	_, err := gw.Run("", "-c", "echo 'fatal: broken ref' >&2; exit 128")
	require.Error(t, err)

	var subErr *types.SubprocessError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "fatal: broken ref", subErr.Stderr)
	assert.Contains(t, err.Error(), "fatal: broken ref")
}
