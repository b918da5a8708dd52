package server

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// pidFile guards against two servers sharing one data directory
type pidFile struct {
	path string
}

// newPIDFile places quickclip.pid in dir, defaulting to ~/.quickclip
func newPIDFile(dir string) (*pidFile, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".quickclip")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}

	return &pidFile{
		path: filepath.Join(dir, "quickclip.pid"),
	}, nil
}

// ClaimPID records this process as the owner of dir. Another live owner is
// an error unless replace is set, in which case it is asked to terminate.
// The returned func removes the PID file.
func ClaimPID(dir string, replace bool) (release func(), err error) {
	pid, err := newPIDFile(dir)
	if err != nil {
		return nil, err
	}
	other, err := pid.read()
	if err != nil {
		slog.Warn("ignoring unreadable PID file", "path", pid.path, "err", err)
		other = 0
	}
	if other != 0 && isRunning(other) {
		if !replace {
			return nil, fmt.Errorf("quickclip is already running (pid %d)", other)
		}
		slog.Info("stopping previous instance", "pid", other)
		if err := killProcess(other); err != nil {
			return nil, err
		}
	}
	if err := pid.write(); err != nil {
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}
	return func() {
		if err := pid.remove(); err != nil {
			slog.Warn("failed to remove PID file", "err", err)
		}
	}, nil
}

// write writes the current process PID to the PID file
func (p *pidFile) write() error {
	pid := os.Getpid()
	return os.WriteFile(p.path, []byte(strconv.Itoa(pid)), 0644)
}

// read reads the PID from the PID file; 0 means no file
func (p *pidFile) read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}

	return pid, nil
}

// remove removes the PID file
func (p *pidFile) remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// isRunning checks if another process with the given PID is running
func isRunning(pid int) bool {
	if pid == os.Getpid() {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix systems, FindProcess always succeeds, so we need to check if the process actually exists
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// killProcess attempts to kill a process with the given PID
func killProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	// First try SIGTERM for graceful shutdown
	if err := process.Signal(syscall.SIGTERM); err != nil {
		// If SIGTERM fails, force kill with SIGKILL
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to kill process: %w", err)
		}
	}

	return nil
}
