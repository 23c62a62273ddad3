package spawn

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// ExitStatus is the raw status a process terminated with.
type ExitStatus struct {
	ws unix.WaitStatus
}

// Success reports a normal exit with code 0.
func (s ExitStatus) Success() bool {
	return s.ws.Exited() && s.ws.ExitStatus() == 0
}

// Code is the exit code when the process exited normally.
func (s ExitStatus) Code() (int, bool) {
	if !s.ws.Exited() {
		return 0, false
	}
	return s.ws.ExitStatus(), true
}

// Signal is the terminating signal when the process was killed by one.
func (s ExitStatus) Signal() (syscall.Signal, bool) {
	if !s.ws.Signaled() {
		return 0, false
	}
	return s.ws.Signal(), true
}

func (s ExitStatus) CoreDumped() bool {
	return s.ws.Signaled() && s.ws.CoreDump()
}

// Raw returns the undecoded wait status.
func (s ExitStatus) Raw() uint32 {
	return uint32(s.ws)
}

// ShellCode folds the status into the 0-255 range a shell would report:
// the exit code, or 128 plus the signal number.
func (s ExitStatus) ShellCode() int {
	if code, ok := s.Code(); ok {
		return code
	}
	if sig, ok := s.Signal(); ok {
		return 128 + int(sig)
	}
	return 255
}

func (s ExitStatus) String() string {
	if code, ok := s.Code(); ok {
		return fmt.Sprintf("exit status: %d", code)
	}
	if sig, ok := s.Signal(); ok {
		if s.CoreDumped() {
			return fmt.Sprintf("signal: %d (%v) (core dumped)", int(sig), sig)
		}
		return fmt.Sprintf("signal: %d (%v)", int(sig), sig)
	}
	return fmt.Sprintf("unrecognized wait status: %#x", uint32(s.ws))
}
