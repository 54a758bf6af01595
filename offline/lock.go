package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/failsafe/clock"
)

// ErrLockHeld is returned when the lock stays held by another owner for
// every polling attempt.
var ErrLockHeld = errors.New("offline: lock held by another process")

// LockInfo is the content of the lock file.
type LockInfo struct {
	// Timestamp is when the lock was taken, in Unix milliseconds.
	Timestamp int64  `json:"timestamp"`
	Owner     string `json:"owner"`
	PID       int    `json:"pid"`
}

// Age returns how long ago the lock was taken.
func (i LockInfo) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(i.Timestamp))
}

// FileLock is an advisory lock file shared with companion processes that
// use the same sync directory. A lock older than StaleAfter is considered
// abandoned and may be taken over.
type FileLock struct {
	fs     afero.Fs
	path   string
	owner  string
	config LockConfig
	clock  clock.Clock

	mu    sync.Mutex
	held  bool
	stamp int64
}

// NewFileLock creates a lock at path identified by owner.
func NewFileLock(fsys afero.Fs, path, owner string, config LockConfig, clk clock.Clock) *FileLock {
	config.ApplyDefaults()
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &FileLock{fs: fsys, path: path, owner: owner, config: config, clock: clk}
}

// Path returns the lock file path.
func (l *FileLock) Path() string { return l.path }

// Acquire takes the lock, polling every RetryInterval up to Retries times
// while another owner holds it. The lock is not re-entrant: a second
// Acquire on a held FileLock waits for Release like any other contender.
func (l *FileLock) Acquire(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		ok, err := l.tryAcquire()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if attempt >= l.config.Retries {
			return fmt.Errorf("%w after %d attempts: %s", ErrLockHeld, attempt+1, l.path)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(l.config.RetryInterval):
		}
	}
}

func (l *FileLock) tryAcquire() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return false, nil
	}
	info := LockInfo{Timestamp: l.clock.Now().UnixMilli(), Owner: l.owner, PID: os.Getpid()}
	ok, err := l.create(info)
	if ok {
		l.held = true
		l.stamp = info.Timestamp
	}
	return ok, err
}

func (l *FileLock) create(info LockInfo) (bool, error) {
	b, err := json.Marshal(info)
	if err != nil {
		return false, err
	}

	f, err := l.fs.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err == nil {
		_, werr := f.Write(b)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			_ = l.fs.Remove(l.path)
			return false, fmt.Errorf("offline: write lock: %w", errors.Join(werr, cerr))
		}
		return true, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return false, fmt.Errorf("offline: create lock: %w", err)
	}

	current, found, err := l.read()
	if err != nil || !found {
		// Unreadable or vanished; try again on the next poll.
		return false, nil
	}
	if current.Age(l.clock.Now()) > l.config.StaleAfter {
		if err := l.fs.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("offline: remove stale lock: %w", err)
		}
		return l.create(info)
	}
	return false, nil
}

func (l *FileLock) read() (LockInfo, bool, error) {
	b, err := afero.ReadFile(l.fs, l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return LockInfo{}, false, nil
	}
	if err != nil {
		return LockInfo{}, false, err
	}
	var info LockInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return LockInfo{}, false, err
	}
	return info, true, nil
}

// Release removes the lock file if it is still the one this lock wrote.
// Owner names repeat across locks in one process, so the timestamp is
// compared as well.
func (l *FileLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	l.held = false

	info, found, err := l.read()
	if err != nil || !found || info.Owner != l.owner || info.Timestamp != l.stamp {
		return nil
	}
	if err := l.fs.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("offline: release lock: %w", err)
	}
	return nil
}

// LockStatus describes the lock file for diagnostics.
type LockStatus struct {
	Held  bool          `json:"held"`
	Stale bool          `json:"stale"`
	Info  LockInfo      `json:"info"`
	Age   time.Duration `json:"age"`
}

// Status reports who holds the lock, if anyone.
func (l *FileLock) Status() (LockStatus, error) {
	info, found, err := l.read()
	if err != nil {
		return LockStatus{}, fmt.Errorf("offline: read lock: %w", err)
	}
	if !found {
		return LockStatus{}, nil
	}
	age := info.Age(l.clock.Now())
	return LockStatus{Held: true, Stale: age > l.config.StaleAfter, Info: info, Age: age}, nil
}
