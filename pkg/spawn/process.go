package spawn

import (
	"errors"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// OS entry points, swapped out by tests that count calls.
var (
	sysWait4    = unix.Wait4
	sysKill     = unix.Kill
	sysWaitable = blockUntilWaitable
)

// Process is a launched child. Its status is observed at most once from the
// OS and cached afterwards; once observed, the pid may belong to another
// process and the handle refuses to signal it.
//
// Reaping and signalling are serialized, so Kill may be called while another
// goroutine is blocked in Wait.
type Process struct {
	pid int

	mu     sync.Mutex // held while reaping and while signalling
	status *ExitStatus
}

func newProcess(pid int) *Process {
	return &Process{pid: pid}
}

func (p *Process) Pid() int {
	return p.pid
}

func (p *Process) cached() *ExitStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Wait blocks until the process exits and returns its status. Later calls
// return the same status without asking the OS again.
func (p *Process) Wait() (ExitStatus, error) {
	if st := p.cached(); st != nil {
		return *st, nil
	}

	// Block without reaping, so the pid stays ours until the lock is held.
	if err := sysWaitable(p.pid); err != nil {
		return ExitStatus{}, osError("wait", "", asErrno(err))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != nil {
		return *p.status, nil
	}
	var ws unix.WaitStatus
	for {
		_, err := sysWait4(p.pid, &ws, 0, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return ExitStatus{}, osError("wait", "", asErrno(err))
		}
		break
	}
	return p.observe(ws), nil
}

// TryWait returns the status if the process has exited and nil if it is
// still running. Nothing is cached in the latter case.
func (p *Process) TryWait() (*ExitStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != nil {
		st := *p.status
		return &st, nil
	}
	var ws unix.WaitStatus
	pid, err := sysWait4(p.pid, &ws, unix.WNOHANG, nil)
	if err != nil {
		return nil, osError("wait", "", asErrno(err))
	}
	if pid == 0 {
		return nil, nil
	}
	st := p.observe(ws)
	return &st, nil
}

// observe caches ws. p.mu must be held.
func (p *Process) observe(ws unix.WaitStatus) ExitStatus {
	st := ExitStatus{ws: ws}
	p.status = &st
	return st
}

// Kill sends SIGKILL.
func (p *Process) Kill() error {
	return p.Signal(syscall.SIGKILL)
}

// Signal sends sig. It fails with ErrInvalidState, without any system call,
// once the status has been observed.
func (p *Process) Signal(sig syscall.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != nil {
		return &Error{Op: "kill", Kind: KindInvalidState, Msg: "process has already been reaped"}
	}
	if err := sysKill(p.pid, sig); err != nil {
		return osError("kill", "", asErrno(err))
	}
	return nil
}
