// Package git isolates all subprocess invocation behind a single gateway
// so the rest of the engine only ever sees typed results.
package git

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/awhite/vibetree/pkg/types"
)

// Runner executes git and gh subcommands in a given directory. It is the
// seam used by tests to substitute canned output for real subprocesses.
type Runner interface {
	Run(dir string, args ...string) (string, error)
	RunGH(dir string, args ...string) (string, error)
}

// ProcessGateway runs real git/gh processes. All failures preserve the
// original stderr verbatim; nothing is retried.
type ProcessGateway struct {
	gitCommand string
	ghCommand  string
}

// NewProcessGateway creates a gateway using the default executables.
func NewProcessGateway() *ProcessGateway {
	return &ProcessGateway{gitCommand: "git", ghCommand: "gh"}
}

// Run executes a git subcommand in dir and returns trimmed stdout.
func (g *ProcessGateway) Run(dir string, args ...string) (string, error) {
	return g.run(g.gitCommand, dir, args)
}

// RunGH executes a GitHub CLI subcommand in dir and returns trimmed stdout.
func (g *ProcessGateway) RunGH(dir string, args ...string) (string, error) {
	return g.run(g.ghCommand, dir, args)
}

func (g *ProcessGateway) run(command, dir string, args []string) (string, error) {
	cmd := exec.Command(command, args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		stderr := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		display := command
		if len(args) > 0 {
			display = fmt.Sprintf("%s %s", command, args[0])
		}
		return "", types.NewSubprocessError(command+"-run", display, stderr, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// RepoRoot resolves the repository root for a working directory.
func RepoRoot(runner Runner, workingDir string) (string, error) {
	root, err := runner.Run(workingDir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", types.NewNotFoundError("repo-root", "not a git repository", err)
	}
	return root, nil
}
