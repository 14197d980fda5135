package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/airnode/internal/errors"
)

const (
	pidFile = "airnode.pid"
)

// Path returns the location of the PID file
func Path() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write writes the current process ID to the PID file. It fails with
// errors.ErrAlreadyRunning when the file names a live process.
func Write() error {
	return write(Path(), os.Getpid())
}

// Remove removes the PID file.
func Remove() error {
	return remove(Path())
}

func write(path string, pid int) error {
	errFactory := errors.New()

	if _, err := os.Stat(path); err == nil {
		// PID file exists, check if the process is running
		bytes, err := os.ReadFile(path)
		if err != nil {
			return errFactory.Wrap(errors.ErrInternal, err)
		}

		// A corrupt file is treated as stale
		if existing, err := strconv.Atoi(strings.TrimSpace(string(bytes))); err == nil && running(existing) {
			return errFactory.WithData(errors.ErrAlreadyRunning, existing)
		}
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func remove(path string) error {
	errFactory := errors.New()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(path); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func running(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
