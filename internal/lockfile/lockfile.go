// Package lockfile keeps two HabitLens processes from sharing one state directory.
//
// The lock is an flock on a file in the state directory, so the kernel drops it when the
// process exits, however it exits.
package lockfile

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the name of the lock file created in the state directory
const LockFileName = "habitlens.lock"

// Owner describes the process recorded in a lock file.
type Owner struct {
	PID     int
	Started time.Time
}

// Running reports whether the owning process still exists.
func (o Owner) Running() bool {
	if o.PID <= 0 {
		return false
	}
	process, err := os.FindProcess(o.PID)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without delivering anything.
	return process.Signal(syscall.Signal(0)) == nil
}

func (o Owner) String() string {
	if o.PID <= 0 {
		return "unknown process"
	}
	state := "not running - stale lock"
	if o.Running() {
		state = "running"
	}
	if o.Started.IsZero() {
		return fmt.Sprintf("PID %d (%s)", o.PID, state)
	}
	return fmt.Sprintf("PID %d started %s (%s)", o.PID, o.Started.Format(time.RFC3339), state)
}

// Lock is an acquired state directory lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes the lock of stateDir, creating the directory when needed. It fails with a
// *LockError when another process holds the lock.
func Acquire(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	path := filepath.Join(stateDir, LockFileName)

	// O_TRUNC would wipe the owner record of a running instance before the flock check.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		owner, _ := ReadOwner(path)
		slog.Error("Lockfile: state directory is locked", "lock_path", path, "owner", owner.String())
		return nil, &LockError{LockPath: path, Owner: owner, Cause: err}
	}

	if err := writeOwner(file, Owner{PID: os.Getpid(), Started: time.Now().UTC()}); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("failed to write lock information to %s: %w", path, err)
	}

	slog.Info("Lockfile: acquired state directory lock", "lock_path", path, "pid", os.Getpid())
	return &Lock{file: file, path: path}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock and removes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Error("Lockfile: failed to release flock", "error", err, "lock_path", l.path)
	}
	closeErr := l.file.Close()
	l.file = nil
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Lockfile: failed to remove lock file", "error", err, "lock_path", l.path)
	}
	slog.Info("Lockfile: released state directory lock", "lock_path", l.path)
	return closeErr
}

func writeOwner(f *os.File, o Owner) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte(fmt.Sprintf("pid=%d\nstarted=%s\n", o.PID, o.Started.Format(time.RFC3339))), 0); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		slog.Warn("Lockfile: failed to sync lock file", "error", err)
	}
	return nil
}

// ReadOwner parses the owner record of a lock file. Unknown lines are ignored.
func ReadOwner(path string) (Owner, error) {
	f, err := os.Open(path)
	if err != nil {
		return Owner{}, err
	}
	defer f.Close()

	var o Owner
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			o.PID, _ = strconv.Atoi(value)
		case "started":
			o.Started, _ = time.Parse(time.RFC3339, value)
		}
	}
	return o, sc.Err()
}

// LockError reports a state directory held by another process.
type LockError struct {
	LockPath string
	Owner    Owner
	Cause    error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("another HabitLens instance is using this state directory (lock file %s, owner %s); "+
		"remove the lock file only if no other instance is running", e.LockPath, e.Owner)
}

func (e *LockError) Unwrap() error {
	return e.Cause
}
