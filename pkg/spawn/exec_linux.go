package spawn

import (
	"errors"
	"os"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Exec applies spec to the calling process and replaces its image, following
// the same steps and search rules as a spawned child. It returns only on
// failure, and by then standard streams, credentials, working directory and
// signal dispositions may already have been changed.
func (s *Spawner) Exec(spec *Spec) error {
	if err := spec.validate("exec"); err != nil {
		return err
	}
	for _, st := range []Stdio{spec.Stdin, spec.Stdout, spec.Stderr} {
		if st == Pipe {
			return invalidInput("exec", spec.Program, "pipe stdio has no parent to read it")
		}
	}
	stdio, err := setupStdio(spec)
	if err != nil {
		return err
	}
	defer stdio.closeChild()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p := prepare(spec)
	s.logger.Debug("replacing process image", "program", spec.Program)
	return osError("exec", spec.Program, execInPlace(p, stdio.child, s.signals))
}

func execInPlace(p *prepared, pipes ChildPipes, signals SignalReset) syscall.Errno {
	for i, fd := range pipes.fds() {
		if fd < 0 {
			continue
		}
		var err error
		for {
			if fd == i {
				_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFD, 0)
			} else {
				err = unix.Dup3(fd, i, 0)
			}
			if !errors.Is(err, unix.EINTR) {
				break
			}
		}
		if err != nil {
			return asErrno(err)
		}
	}

	if p.gid != nil {
		if err := syscall.Setgid(int(*p.gid)); err != nil {
			return asErrno(err)
		}
	}
	if p.uid != nil {
		_ = syscall.Setgroups(nil)
		if err := syscall.Setuid(int(*p.uid)); err != nil {
			return asErrno(err)
		}
	}
	if p.dir != "" {
		if err := unix.Chdir(p.dir); err != nil {
			return asErrno(err)
		}
	}

	if signals.ClearMask {
		var empty unix.Sigset_t
		if err := unix.PthreadSigmask(_SIG_SETMASK, &empty, nil); err != nil {
			return asErrno(err)
		}
	}
	var dfl [4]uint64
	for _, sig := range signals.Defaults {
		_, _, errno := unix.RawSyscall6(unix.SYS_RT_SIGACTION, uintptr(sig), uintptr(unsafe.Pointer(&dfl)), 0, 8, 0, 0)
		if errno != 0 {
			return errno
		}
	}

	for i := range p.hooks {
		h := &p.hooks[i]
		_, _, errno := unix.RawSyscall6(h.trap, h.args[0], h.args[1], h.args[2], h.args[3], h.args[4], h.args[5])
		if errno != 0 {
			return errno
		}
	}

	env := p.env
	if env == nil {
		env = os.Environ()
	}
	return search(p, func(path string) syscall.Errno {
		return asErrno(syscall.Exec(path, p.argv, env))
	})
}
