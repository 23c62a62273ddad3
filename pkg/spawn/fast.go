package spawn

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

var fastProbe struct {
	once sync.Once
	ok   bool
}

// fastSpawnCapable reports, once per process, whether syscall.ForkExec turns
// a missing program into a direct ENOENT rather than a pid for a child that
// dies right away. Only then does the fast path classify failures the same
// way the fork path does.
func fastSpawnCapable() bool {
	fastProbe.once.Do(func() {
		fastProbe.ok = probeFastSpawn()
	})
	return fastProbe.ok
}

func probeFastSpawn() bool {
	path := "/nonexistent/spawn-probe-" + strconv.Itoa(os.Getpid())
	pid, err := syscall.ForkExec(path, []string{path}, &syscall.ProcAttr{Env: []string{}})
	if err == nil {
		var ws unix.WaitStatus
		for {
			if _, werr := unix.Wait4(pid, &ws, 0, nil); !errors.Is(werr, unix.EINTR) {
				break
			}
		}
		return false
	}
	return errors.Is(err, syscall.ENOENT)
}

// spawnFast launches p with syscall.ForkExec. Standard stream duplication is
// declared through ProcAttr.Files. On platforms without the fork strategy the
// working directory and credentials are declared here too.
func spawnFast(p *prepared, pipes ChildPipes) (*Process, error) {
	attr := &syscall.ProcAttr{
		Dir: p.dir,
		Env: p.env,
	}
	if attr.Env == nil {
		attr.Env = os.Environ()
	}
	for i, fd := range pipes.fds() {
		if fd < 0 {
			fd = i
		}
		attr.Files = append(attr.Files, uintptr(fd))
	}
	if p.uid != nil || p.gid != nil {
		attr.Sys = &syscall.SysProcAttr{Credential: fastCredential(p)}
	}

	var pid int
	errno := search(p, func(path string) syscall.Errno {
		var err error
		pid, err = syscall.ForkExec(path, p.argv, attr)
		if err != nil {
			return asErrno(err)
		}
		return 0
	})
	if errno != 0 {
		return nil, osError("spawn", p.program, errno)
	}
	return newProcess(pid), nil
}

func fastCredential(p *prepared) *syscall.Credential {
	cred := &syscall.Credential{
		Uid: uint32(os.Getuid()),
		Gid: uint32(os.Getgid()),
		// Dropping supplementary groups needs privilege; without it the
		// attempt is skipped instead of failing the spawn.
		NoSetGroups: p.uid == nil || os.Geteuid() != 0,
	}
	if p.uid != nil {
		cred.Uid = *p.uid
	}
	if p.gid != nil {
		cred.Gid = *p.gid
	}
	return cred
}
