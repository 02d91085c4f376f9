package worktree

import (
	"errors"
	"strings"
	"sync"
)

// fakeRunner substitutes canned output for git/gh subprocesses. Stubs
// are keyed by the joined argument list; a "dir|args" key scopes a stub
// to one directory. Longest-prefix matching covers commands whose tail
// arguments (paths, timestamps) are not predictable.
type fakeRunner struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]string
	calls     []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		responses: make(map[string]string),
		failures:  make(map[string]string),
	}
}

func (f *fakeRunner) respond(key, output string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = output
}

func (f *fakeRunner) fail(key, stderr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = stderr
}

func (f *fakeRunner) Run(dir string, args ...string) (string, error) {
	return f.run(dir, strings.Join(args, " "))
}

func (f *fakeRunner) RunGH(dir string, args ...string) (string, error) {
	return f.run(dir, "gh "+strings.Join(args, " "))
}

func (f *fakeRunner) run(dir, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)

	scoped := dir + "|" + key
	for _, candidate := range []string{scoped, key} {
		if stderr, ok := f.failures[candidate]; ok {
			return "", errors.New(stderr)
		}
		if output, ok := f.responses[candidate]; ok {
			return output, nil
		}
	}

	// Longest-prefix fallback for commands with unpredictable tails.
	best := ""
	bestOutput := ""
	bestFails := false
	for stub, output := range f.responses {
		if strings.HasPrefix(key, stub) && len(stub) > len(best) {
			best, bestOutput, bestFails = stub, output, false
		}
	}
	for stub, stderr := range f.failures {
		if strings.HasPrefix(key, stub) && len(stub) > len(best) {
			best, bestOutput, bestFails = stub, stderr, true
		}
	}
	if best != "" {
		if bestFails {
			return "", errors.New(bestOutput)
		}
		return bestOutput, nil
	}
	return "", errors.New("unstubbed command: " + key)
}

func (f *fakeRunner) called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, call := range f.calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

func (f *fakeRunner) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if strings.HasPrefix(call, prefix) {
			count++
		}
	}
	return count
}
