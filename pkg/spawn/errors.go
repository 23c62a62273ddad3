package spawn

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// Kind classifies a spawn or process error.
type Kind int

const (
	// KindOS is any numbered system call failure not covered below.
	KindOS Kind = iota
	// KindInvalidInput is a Spec rejected before any process was created.
	KindInvalidInput
	// KindNotFound means no usable executable was found.
	KindNotFound
	// KindPermission means a candidate existed but could not be executed.
	KindPermission
	// KindInvalidState is an operation refused by the process handle.
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindOS:
		return "os error"
	case KindInvalidInput:
		return "invalid input"
	case KindNotFound:
		return "not found"
	case KindPermission:
		return "permission denied"
	case KindInvalidState:
		return "invalid state"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is. Every *Error matches exactly one of them except
// KindOS, which is matched through the wrapped syscall.Errno instead.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("executable not found")
	ErrPermission   = errors.New("permission denied")
	ErrInvalidState = errors.New("invalid process state")
)

// Error is returned by every operation in this package.
type Error struct {
	Op      string // "spawn", "exec", "wait", "kill", ...
	Program string
	Kind    Kind
	Errno   syscall.Errno // zero when the failure has no OS error number
	Msg     string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Program != "" {
		fmt.Fprintf(&b, " %q", e.Program)
	}
	b.WriteString(": ")
	switch {
	case e.Msg != "" && e.Errno != 0:
		fmt.Fprintf(&b, "%s: %v", e.Msg, e.Errno)
	case e.Msg != "":
		b.WriteString(e.Msg)
	default:
		b.WriteString(e.Errno.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e.Errno == 0 {
		return nil
	}
	return e.Errno
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidInput:
		return e.Kind == KindInvalidInput
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrPermission:
		return e.Kind == KindPermission
	case ErrInvalidState:
		return e.Kind == KindInvalidState
	}
	return false
}

func errnoKind(errno syscall.Errno) Kind {
	switch errno {
	case syscall.ENOENT:
		return KindNotFound
	case syscall.EACCES, syscall.EPERM:
		return KindPermission
	}
	return KindOS
}

func osError(op, program string, errno syscall.Errno) *Error {
	return &Error{Op: op, Program: program, Kind: errnoKind(errno), Errno: errno}
}

func invalidInput(op, program, format string, args ...any) *Error {
	return &Error{Op: op, Program: program, Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// asErrno extracts the OS error number from err, falling back to EINVAL.
func asErrno(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EINVAL
}

// ProtocolError reports a malformed message on the fork error pipe. It means
// this package is broken, so it is raised with panic rather than returned.
type ProtocolError struct {
	Got    []byte
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("spawn: error pipe protocol violation: %s (got %x)", e.Reason, e.Got)
}
