//go:build !darwin

package worktree

import (
	"os"
	"time"
)

// Most platforms have no reliable directory birth time, so modification
// time stands in for creation time.
func directoryCreatedTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
