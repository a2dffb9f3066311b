package fs

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrLockTimeout is returned when another process holds the store lock for too long.
var ErrLockTimeout = errors.New("timed out waiting for store lock")

// lockFile acquires a file-based lock shared by every process writing the store.
// It blocks until the lock is acquired or timeout elapses.
func lockFile(path string, timeout time.Duration) (func(), error) {
	deadline := time.Now().Add(timeout)

	for {
		// O_EXCL makes creation the atomic test-and-set.
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL, 0666)
		if err == nil {
			f.Close()
			return func() {
				os.Remove(path)
			}, nil
		}

		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
