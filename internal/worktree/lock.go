package worktree

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// MutationLock is a file-based lock serializing worktree mutations.
// git worktree add/remove is not safe under concurrent invocation on
// one repository, so at most one mutation may be in flight per
// repository root.
type MutationLock struct {
	lockPath   string
	lockFile   *os.File
	pid        int
	acquired   bool
	timeout    time.Duration
	retryDelay time.Duration
	mu         sync.Mutex
}

// LockManager hands out per-repository mutation locks.
type LockManager struct {
	lockDir string
	locks   map[string]*MutationLock
	mu      sync.Mutex
}

// NewLockManager creates a new lock manager
func NewLockManager() (*LockManager, error) {
	lockDir := filepath.Join(os.TempDir(), "vibetree-locks")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &LockManager{
		lockDir: lockDir,
		locks:   make(map[string]*MutationLock),
	}, nil
}

// AcquireMutation blocks until the repository's mutation lock is held
// or the timeout elapses.
func (lm *LockManager) AcquireMutation(repoRoot string, timeout time.Duration) (*MutationLock, error) {
	lm.mu.Lock()
	key := lockKey(repoRoot)
	if existing, ok := lm.locks[key]; ok && existing.acquired {
		lm.mu.Unlock()
		return nil, fmt.Errorf("mutation lock already held for %s", repoRoot)
	}
	lock := &MutationLock{
		lockPath:   filepath.Join(lm.lockDir, key+".lock"),
		pid:        os.Getpid(),
		timeout:    timeout,
		retryDelay: 100 * time.Millisecond,
	}
	lm.locks[key] = lock
	lm.mu.Unlock()

	if err := lock.acquire(); err != nil {
		lm.mu.Lock()
		delete(lm.locks, key)
		lm.mu.Unlock()
		return nil, err
	}
	return lock, nil
}

// Release releases a previously acquired lock.
func (lm *LockManager) Release(lock *MutationLock) error {
	if lock == nil {
		return nil
	}
	lm.mu.Lock()
	for key, tracked := range lm.locks {
		if tracked == lock {
			delete(lm.locks, key)
			break
		}
	}
	lm.mu.Unlock()
	return lock.release()
}

// ReleaseAll releases every lock held by this manager.
func (lm *LockManager) ReleaseAll() error {
	lm.mu.Lock()
	locks := make([]*MutationLock, 0, len(lm.locks))
	for _, lock := range lm.locks {
		locks = append(locks, lock)
	}
	lm.locks = make(map[string]*MutationLock)
	lm.mu.Unlock()

	var errs []error
	for _, lock := range locks {
		if err := lock.release(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to release %d locks: %v", len(errs), errs)
	}
	return nil
}

func (ol *MutationLock) acquire() error {
	ol.mu.Lock()
	defer ol.mu.Unlock()

	if ol.acquired {
		return fmt.Errorf("lock already acquired")
	}

	start := time.Now()
	for {
		file, err := os.OpenFile(ol.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			ol.lockFile = file
			ol.acquired = true
			info := fmt.Sprintf("pid=%d\ntime=%s\n", ol.pid, time.Now().Format(time.RFC3339))
			if _, writeErr := file.WriteString(info); writeErr != nil {
				file.Close()
				os.Remove(ol.lockPath)
				ol.acquired = false
				return fmt.Errorf("failed to write lock info: %w", writeErr)
			}
			_ = file.Sync()
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		if time.Since(start) >= ol.timeout {
			if info, readErr := os.ReadFile(ol.lockPath); readErr == nil {
				return fmt.Errorf("timeout waiting for mutation lock (held by %s)",
					strings.TrimSpace(string(info)))
			}
			return fmt.Errorf("timeout waiting for mutation lock")
		}

		if ol.isStale() {
			_ = os.Remove(ol.lockPath)
			continue
		}
		time.Sleep(ol.retryDelay)
	}
}

func (ol *MutationLock) release() error {
	ol.mu.Lock()
	defer ol.mu.Unlock()

	if !ol.acquired {
		return nil
	}
	ol.acquired = false

	var errs []error
	if ol.lockFile != nil {
		if err := ol.lockFile.Close(); err != nil {
			errs = append(errs, err)
		}
		ol.lockFile = nil
	}
	if err := os.Remove(ol.lockPath); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("lock cleanup errors: %v", errs)
	}
	return nil
}

// isStale reports whether the lock file belongs to a dead process.
func (ol *MutationLock) isStale() bool {
	data, err := os.ReadFile(ol.lockPath)
	if err != nil {
		return true
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "pid=") {
			if pid, err := strconv.Atoi(line[4:]); err == nil && pid > 0 {
				return !processExists(pid)
			}
		}
	}
	return true
}

func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// lockKey hashes the repo root so long paths and special characters
// produce a stable file name.
func lockKey(repoRoot string) string {
	hash := sha256.Sum256([]byte(repoRoot))
	return fmt.Sprintf("vibetree-mutation-%x", hash[:8])
}
