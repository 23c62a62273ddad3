//go:build linux && (amd64 || arm64)

package spawn

import (
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// forkSupported marks platforms where this package forks by itself.
const forkSupported = true

// Provided by the runtime for package syscall. BeforeFork blocks signals and
// poisons the stack guard so that any stack growth before AfterFork or
// AfterForkInChild crashes loudly instead of corrupting the child.

//go:linkname runtime_BeforeFork syscall.runtime_BeforeFork
func runtime_BeforeFork()

//go:linkname runtime_AfterFork syscall.runtime_AfterFork
func runtime_AfterFork()

//go:linkname runtime_AfterForkInChild syscall.runtime_AfterForkInChild
func runtime_AfterForkInChild()

// childConfig is everything the child reads between fork and exec. It is
// built completely in the parent: the child only indexes into it.
type childConfig struct {
	stdio [3]int

	setGid, setUid bool
	gid, uid       uintptr

	dir *byte

	clearMask bool
	emptyMask uint64    // kernel sigset for rt_sigprocmask
	sigDfl    [4]uint64 // zeroed kernel sigaction: SIG_DFL, no flags
	defaults  []uintptr

	hooks []Hook

	argv0    *byte
	argv     []*byte
	envv     []*byte
	paths    []*byte
	searched bool

	readEnd  int
	writeEnd int
	msg      [errMsgLen]byte
}

func newChildConfig(p *prepared, pipes ChildPipes, signals SignalReset) (*childConfig, error) {
	c := &childConfig{
		stdio:     pipes.fds(),
		clearMask: signals.ClearMask,
		hooks:     p.hooks,
		searched:  p.searched,
		readEnd:   -1,
		writeEnd:  -1,
	}
	if p.gid != nil {
		c.setGid, c.gid = true, uintptr(*p.gid)
	}
	if p.uid != nil {
		c.setUid, c.uid = true, uintptr(*p.uid)
	}
	for _, sig := range signals.Defaults {
		c.defaults = append(c.defaults, uintptr(sig))
	}

	var err error
	if p.dir != "" {
		if c.dir, err = syscall.BytePtrFromString(p.dir); err != nil {
			return nil, err
		}
	}
	if c.argv0, err = syscall.BytePtrFromString(p.program); err != nil {
		return nil, err
	}
	if c.argv, err = syscall.SlicePtrFromStrings(p.argv); err != nil {
		return nil, err
	}
	env := p.env
	if env == nil {
		env = syscall.Environ()
	}
	if c.envv, err = syscall.SlicePtrFromStrings(env); err != nil {
		return nil, err
	}
	for _, path := range p.candidates {
		b, err := syscall.BytePtrFromString(path)
		if err != nil {
			return nil, err
		}
		c.paths = append(c.paths, b)
	}
	return c, nil
}

// spawnFork forks, runs childEntry in the child and reads the outcome from
// the error pipe: end of stream is success, an 8-byte message is a failure.
func spawnFork(p *prepared, pipes ChildPipes, signals SignalReset) (*Process, error) {
	c, err := newChildConfig(p, pipes, signals)
	if err != nil {
		return nil, invalidInput("spawn", p.program, "%v", err)
	}

	// Hold ForkLock so no descriptor created concurrently without
	// close-on-exec leaks into the child.
	syscall.ForkLock.Lock()
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		syscall.ForkLock.Unlock()
		return nil, &Error{Op: "spawn", Program: p.program, Kind: KindOS, Errno: asErrno(err), Msg: "creating error pipe"}
	}
	c.readEnd, c.writeEnd = fds[0], fds[1]
	// Keep the write end clear of the standard streams the child overwrites.
	if c.writeEnd < 3 {
		fd, err := unix.FcntlInt(uintptr(c.writeEnd), unix.F_DUPFD_CLOEXEC, 3)
		unix.Close(c.writeEnd)
		if err != nil {
			unix.Close(c.readEnd)
			syscall.ForkLock.Unlock()
			return nil, &Error{Op: "spawn", Program: p.program, Kind: KindOS, Errno: asErrno(err), Msg: "moving error pipe"}
		}
		c.writeEnd = fd
	}

	pid, errno := forkChild(c)
	runtime_AfterFork()
	syscall.ForkLock.Unlock()

	unix.Close(c.writeEnd)
	if errno != 0 {
		unix.Close(c.readEnd)
		return nil, &Error{Op: "spawn", Program: p.program, Kind: KindOS, Errno: errno, Msg: "fork"}
	}

	proc := newProcess(int(pid))
	err = readErrPipe(c.readEnd, proc, p.program)
	unix.Close(c.readEnd)
	return proc, err
}

// sysRead reads the error pipe; tests swap it to inject EINTR.
var sysRead = unix.Read

// readErrPipe waits for the child's exec outcome on fd.
func readErrPipe(fd int, proc *Process, program string) error {
	var msg [errMsgLen]byte
	for {
		n, err := sysRead(fd, msg[:])
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			reap(proc)
			panic(&ProtocolError{Reason: "reading error pipe: " + err.Error()})
		case n == 0:
			return nil
		case n == errMsgLen:
			code, perr := decodeErrMsg(msg)
			reap(proc)
			if perr != nil {
				panic(perr)
			}
			return osError("spawn", program, syscall.Errno(code))
		default:
			reap(proc)
			panic(&ProtocolError{Got: append([]byte(nil), msg[:n]...), Reason: "short read"})
		}
	}
}

// reap collects a child that reported failure so it does not linger as a
// zombie. The child always exits right after reporting.
func reap(proc *Process) {
	if _, err := proc.Wait(); err != nil {
		panic(&ProtocolError{Reason: "reaping failed child: " + err.Error()})
	}
}

// forkChild clones the calling process. In the parent it returns the child's
// pid; the caller must call runtime_AfterFork immediately. In the child it
// never returns.
//
//go:noinline
//go:norace
//go:nocheckptr
func forkChild(c *childConfig) (pid uintptr, err syscall.Errno) {
	runtime_BeforeFork()
	r1, _, err1 := syscall.RawSyscall6(unix.SYS_CLONE, uintptr(syscall.SIGCHLD), 0, 0, 0, 0, 0)
	if err1 != 0 || r1 != 0 {
		return r1, err1
	}

	runtime_AfterForkInChild()
	childExit(c, childEntry(c))
	return 0, 0
}

// childEntry prepares the forked child and replaces its image. Only raw
// system calls and nosplit helpers may run here: no allocation, no stack
// growth, no locks. It returns only on failure.
//
//go:nosplit
//go:norace
//go:nocheckptr
func childEntry(c *childConfig) syscall.Errno {
	var err1 syscall.Errno

	syscall.RawSyscall(unix.SYS_CLOSE, uintptr(c.readEnd), 0, 0)

	for i := 0; i < 3; i++ {
		if c.stdio[i] < 0 {
			continue
		}
		if err1 = dupOnto(c.stdio[i], i); err1 != 0 {
			return err1
		}
	}

	if c.setGid {
		if _, _, err1 = syscall.RawSyscall(unix.SYS_SETGID, c.gid, 0, 0); err1 != 0 {
			return err1
		}
	}
	if c.setUid {
		// Drop supplementary groups while we may still have the privilege.
		// Unprivileged callers get EPERM, which is fine.
		syscall.RawSyscall(unix.SYS_SETGROUPS, 0, 0, 0)
		if _, _, err1 = syscall.RawSyscall(unix.SYS_SETUID, c.uid, 0, 0); err1 != 0 {
			return err1
		}
	}

	if c.dir != nil {
		if _, _, err1 = syscall.RawSyscall(unix.SYS_CHDIR, uintptr(unsafe.Pointer(c.dir)), 0, 0); err1 != 0 {
			return err1
		}
	}

	if c.clearMask {
		_, _, err1 = syscall.RawSyscall6(unix.SYS_RT_SIGPROCMASK, _SIG_SETMASK,
			uintptr(unsafe.Pointer(&c.emptyMask)), 0, unsafe.Sizeof(c.emptyMask), 0, 0)
		if err1 != 0 {
			return err1
		}
	}
	for i := 0; i < len(c.defaults); i++ {
		_, _, err1 = syscall.RawSyscall6(unix.SYS_RT_SIGACTION, c.defaults[i],
			uintptr(unsafe.Pointer(&c.sigDfl)), 0, unsafe.Sizeof(c.emptyMask), 0, 0)
		if err1 != 0 {
			return err1
		}
	}

	for i := 0; i < len(c.hooks); i++ {
		h := &c.hooks[i]
		_, _, err1 = syscall.RawSyscall6(h.trap, h.args[0], h.args[1], h.args[2], h.args[3], h.args[4], h.args[5])
		if err1 != 0 {
			return err1
		}
	}

	argv := uintptr(unsafe.Pointer(&c.argv[0]))
	envv := uintptr(unsafe.Pointer(&c.envv[0]))

	if !c.searched {
		_, _, err1 = syscall.RawSyscall(unix.SYS_EXECVE, uintptr(unsafe.Pointer(c.argv0)), argv, envv)
		return err1
	}

	var pending syscall.Errno
	for i := 0; i < len(c.paths); i++ {
		_, _, err1 = syscall.RawSyscall(unix.SYS_EXECVE, uintptr(unsafe.Pointer(c.paths[i])), argv, envv)
		switch classifyExecErrno(err1) {
		case searchDefer:
			if pending == 0 {
				pending = err1
			}
		case searchNext:
		default:
			return err1
		}
	}
	if pending != 0 {
		return pending
	}
	return syscall.ENOENT
}

// dupOnto installs fd as target, retrying on EINTR. A descriptor already in
// place only loses its close-on-exec flag.
//
//go:nosplit
//go:norace
func dupOnto(fd, target int) syscall.Errno {
	for {
		var err1 syscall.Errno
		if fd == target {
			_, _, err1 = syscall.RawSyscall(unix.SYS_FCNTL, uintptr(fd), unix.F_SETFD, 0)
		} else {
			_, _, err1 = syscall.RawSyscall(unix.SYS_DUP3, uintptr(fd), uintptr(target), 0)
		}
		if err1 != syscall.EINTR {
			return err1
		}
	}
}

// childExit reports errno on the error pipe and terminates without running
// anything else of the parent's program.
//
//go:nosplit
//go:norace
//go:nocheckptr
func childExit(c *childConfig, errno syscall.Errno) {
	encodeErrMsg(&c.msg, uint32(errno))
	for {
		_, _, err1 := syscall.RawSyscall(unix.SYS_WRITE, uintptr(c.writeEnd), uintptr(unsafe.Pointer(&c.msg[0])), errMsgLen)
		if err1 != syscall.EINTR {
			break
		}
	}
	for {
		syscall.RawSyscall(unix.SYS_EXIT_GROUP, 1, 0, 0)
	}
}
