package spawn

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Umask sets the child's file mode creation mask. It cannot fail.
func Umask(mask int) Hook {
	return Syscall("umask", unix.SYS_UMASK, uintptr(mask))
}

// Setrlimit sets one resource limit of the child through prlimit64.
func Setrlimit(resource int, lim unix.Rlimit) Hook {
	l := new(unix.Rlimit)
	*l = lim
	h := Syscall("setrlimit", unix.SYS_PRLIMIT64, 0, uintptr(resource), uintptr(unsafe.Pointer(l)), 0)
	h.keep = l
	return h
}

// Pdeathsig asks the kernel to send sig to the child when the thread that
// spawned it exits.
func Pdeathsig(sig syscall.Signal) Hook {
	return Syscall("pdeathsig", unix.SYS_PRCTL, unix.PR_SET_PDEATHSIG, uintptr(sig))
}
