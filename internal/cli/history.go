package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"golang.org/x/sys/unix"
)

const historyLockPerms = 0o600

// withHistoryLock runs fn holding flock(2) on path+".lock". Two shells
// sharing a history file then never interleave a read with a rewrite.
func withHistoryLock(path string, how int, fn func() error) error {
	lockFile, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, historyLockPerms)
	if err != nil {
		return fmt.Errorf("open history lock: %w", err)
	}

	defer func() { _ = lockFile.Close() }()

	fd := int(lockFile.Fd())

	err = unix.Flock(fd, how)
	if err != nil {
		return fmt.Errorf("lock history: %w", err)
	}

	defer func() { _ = unix.Flock(fd, unix.LOCK_UN) }()

	return fn()
}

// readHistory returns the saved history, or nil if there is none yet.
func readHistory(path string) ([]byte, error) {
	var data []byte

	err := withHistoryLock(path, unix.LOCK_SH, func() error {
		var readErr error

		data, readErr = os.ReadFile(path)
		if errors.Is(readErr, os.ErrNotExist) {
			return nil
		}

		return readErr
	})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	return data, nil
}

// writeHistory replaces the history file atomically.
func writeHistory(path string, data []byte) error {
	err := withHistoryLock(path, unix.LOCK_EX, func() error {
		return atomic.WriteFile(path, bytes.NewReader(data))
	})
	if err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	return nil
}
