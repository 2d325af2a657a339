package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/use-agent/forage/models"
)

// lockFileName is the advisory lock created inside a profile directory
// while a session is using it. Chrome itself corrupts a profile opened
// twice, so the second opener must be refused before launch.
const lockFileName = "forage.lock"

// ResolveProfileDir maps the configured profile setting to a concrete
// directory, or to "" for an ephemeral profile.
//
// An explicit path is used as given (with ~ expanded). "auto" discovers
// the default Chrome profile for the current OS. An empty setting
// discovers the default only for headed sessions; headless sessions
// with no configured profile run ephemeral.
func ResolveProfileDir(configured string, headless bool) string {
	switch configured {
	case "":
		if headless {
			return ""
		}
		return defaultChromeDir()
	case "auto":
		return defaultChromeDir()
	default:
		return expandHome(configured)
	}
}

// defaultChromeDir returns the default Chrome user-data directory for
// this OS, or "" when it cannot be determined or does not exist.
func defaultChromeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	var dir string
	switch runtime.GOOS {
	case "darwin":
		dir = filepath.Join(home, "Library", "Application Support", "Google", "Chrome")
	case "windows":
		dir = filepath.Join(home, "AppData", "Local", "Google", "Chrome", "User Data")
	default:
		dir = filepath.Join(home, ".config", "google-chrome")
	}

	if _, err := os.Stat(dir); err != nil {
		slog.Debug("default Chrome profile not found, running ephemeral", "dir", dir)
		return ""
	}
	return dir
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// ProfileLock is a held advisory lock on a profile directory. The zero
// of *ProfileLock (nil) is a valid, already-released lock, so callers
// without a profile can defer Release unconditionally.
type ProfileLock struct {
	path string
	once sync.Once
}

// AcquireProfile takes the advisory lock for dir. A live holder yields
// a PROFILE_LOCKED error immediately; locks left behind by dead
// processes are reclaimed.
func AcquireProfile(dir string) (*ProfileLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, models.NewBrowseError(models.ErrCodeLaunch, "cannot create profile directory", err)
	}

	lockPath := filepath.Join(dir, lockFileName)
	for attempt := 0; attempt < 2; attempt++ {
		lock, err := tryLock(lockPath)
		if err == nil {
			return lock, nil
		}
		if !os.IsExist(err) {
			return nil, models.NewBrowseError(models.ErrCodeLaunch, "cannot create profile lock", err)
		}

		holder, ok := lockHolder(lockPath)
		if ok && pidAlive(holder) {
			return nil, models.NewBrowseError(
				models.ErrCodeProfileLocked,
				fmt.Sprintf("profile %s is in use by pid %d", dir, holder),
				nil,
			)
		}

		// Holder is gone (or the lock file is garbage): reclaim and
		// retry once. A concurrent opener may still win the retry.
		slog.Debug("reclaiming stale profile lock", "path", lockPath, "pid", holder)
		_ = os.Remove(lockPath)
	}

	return nil, models.NewBrowseError(
		models.ErrCodeProfileLocked,
		fmt.Sprintf("profile %s is in use", dir),
		nil,
	)
}

// Release frees the lock. Safe on nil receivers and repeated calls.
func (l *ProfileLock) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove profile lock", "path", l.path, "error", err)
		}
	})
}

func tryLock(lockPath string) (*ProfileLock, error) {
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	_, writeErr := f.WriteString(strconv.Itoa(os.Getpid()))
	closeErr := f.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(lockPath)
		return nil, errors.Join(writeErr, closeErr)
	}
	return &ProfileLock{path: lockPath}, nil
}

// lockHolder reads the PID recorded in an existing lock file. ok is
// false when the file is unreadable or does not contain a PID, in which
// case the lock is treated as stale.
func lockHolder(lockPath string) (int, bool) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// pidAlive reports whether a process with the given PID exists. An
// EPERM probe counts as alive (the process belongs to someone else).
func pidAlive(pid int) bool {
	// Signal 0 to pid 0 or -1 probes whole process groups, not a holder.
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
