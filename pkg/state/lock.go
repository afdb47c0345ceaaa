package state

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/slidectl/slidectl/pkg/errors"
)

// Lock acquires the exclusive workspace lock, failing fast if another
// process holds it. There is no blocking wait: a second invocation against
// the same workspace must fail immediately rather than queue.
//
// The lock file holds the owner's PID. A lock file left behind by a dead
// process is stale and is reclaimed silently; this keeps a crashed run
// from wedging the workspace forever.
func (m *Manager) Lock() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return err
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(m.lockFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(m.lockFile)
				if werr != nil {
					return werr
				}
				return cerr
			}
			return m.setLockFlag(true)
		}
		if !os.IsExist(err) {
			return err
		}

		pid, perr := m.lockOwner()
		if perr == nil && processAlive(pid) {
			return errors.New(errors.ErrCodeLockHeld,
				"workspace is locked by PID %d; remove %s if that process is gone", pid, m.lockFile)
		}

		// Unreadable or stale lock: reclaim and retry the exclusive create
		// once. If another process wins the race, the second attempt
		// reports LOCK_HELD like any other contention.
		if rerr := os.Remove(m.lockFile); rerr != nil && !os.IsNotExist(rerr) {
			return rerr
		}
	}
	return errors.New(errors.ErrCodeLockHeld, "workspace lock at %s is contended", m.lockFile)
}

// Unlock releases the workspace lock. Safe to call when not locked.
func (m *Manager) Unlock() error {
	if err := os.Remove(m.lockFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return m.setLockFlag(false)
}

// Locked reports whether the lock file exists.
func (m *Manager) Locked() bool {
	_, err := os.Stat(m.lockFile)
	return err == nil
}

// lockOwner reads the PID recorded in the lock file.
func (m *Manager) lockOwner() (int, error) {
	data, err := os.ReadFile(m.lockFile)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// setLockFlag mirrors the lock status into run.json so status inspection
// does not need to know about the lock file. Missing run state is fine;
// the flag is written on the next save.
func (m *Manager) setLockFlag(held bool) error {
	if !m.Exists() {
		return nil
	}
	st, err := m.Load()
	if err != nil {
		return err
	}
	st.Lock = held
	return m.Save(st)
}

// processAlive checks whether a PID refers to a running process using
// signal 0, which performs the existence check without delivering anything.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || err == syscall.EPERM
}
