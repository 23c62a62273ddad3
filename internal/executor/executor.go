// Package executor provides an abstraction for starting processes.
package executor

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/mbrock/spawn/pkg/spawn"
)

// Process represents a running process.
type Process interface {
	// Pid returns the operating system process id.
	Pid() int
	// Wait blocks until the process exits and returns the exit code.
	// Returns 0 for success; a process killed by signal N reports 128+N.
	Wait() (exitCode int, err error)
	// Kill sends SIGKILL to the process.
	Kill() error
}

// Executor starts processes.
type Executor interface {
	// Start starts spec with the given I/O configuration. A nil stdin reads
	// from /dev/null; nil stdout or stderr discard output.
	Start(spec *spawn.Spec, stdin io.Reader, stdout, stderr io.Writer) (Process, error)

	// StartPTY starts spec connected to a PTY slave.
	// The slave file is used for stdin/stdout/stderr and the process
	// becomes the session leader with the PTY as its controlling terminal.
	StartPTY(spec *spawn.Spec, slave *os.File) (Process, error)
}

// SpawnExecutor is the default Executor, backed by a spawn.Spawner.
type SpawnExecutor struct {
	Spawner *spawn.Spawner
	Logger  *slog.Logger
}

// spawnProcess wraps spawn.Process and the goroutines copying between the
// caller's streams and the child's pipes.
type spawnProcess struct {
	proc   *spawn.Process
	copies *errgroup.Group
	stdin  *os.File // parent end of a piped stdin, closed once the child exits
}

func (p *spawnProcess) Pid() int { return p.proc.Pid() }

func (p *spawnProcess) Wait() (int, error) {
	st, err := p.proc.Wait()
	if err != nil {
		return 1, err
	}
	if p.stdin != nil {
		p.stdin.Close()
	}
	if err := p.copies.Wait(); err != nil {
		return st.ShellCode(), fmt.Errorf("copying output: %w", err)
	}
	return st.ShellCode(), nil
}

func (p *spawnProcess) Kill() error {
	return p.proc.Kill()
}

// stdioFor picks the directive for one stream: files are installed directly,
// nil becomes /dev/null and anything else is copied through a pipe.
func stdioFor(v any) spawn.Stdio {
	switch f := v.(type) {
	case nil:
		return spawn.Null
	case *os.File:
		if f == nil {
			return spawn.Null
		}
		return spawn.File(f)
	}
	return spawn.Pipe
}

// Start implements Executor.Start using the spawner.
func (e *SpawnExecutor) Start(spec *spawn.Spec, stdin io.Reader, stdout, stderr io.Writer) (Process, error) {
	cp := *spec
	cp.Stdin = stdioFor(stdin)
	cp.Stdout = stdioFor(stdout)
	cp.Stderr = stdioFor(stderr)

	child, err := e.spawner().Spawn(&cp)
	if err != nil {
		return nil, err
	}

	p := &spawnProcess{proc: child.Process, copies: new(errgroup.Group)}
	if child.Stdin != nil {
		stdinPipe := child.Stdin
		p.stdin = stdinPipe
		go func() {
			defer stdinPipe.Close()
			if _, err := io.Copy(stdinPipe, stdin); err != nil {
				e.logger().Debug("stdin copy stopped", "pid", p.Pid(), "error", err)
			}
		}()
	}
	for _, s := range []struct {
		from *os.File
		to   io.Writer
	}{{child.Stdout, stdout}, {child.Stderr, stderr}} {
		if s.from == nil {
			continue
		}
		s := s
		p.copies.Go(func() error {
			defer s.from.Close()
			_, err := io.Copy(s.to, s.from)
			return err
		})
	}
	return p, nil
}

// StartPTY implements Executor.StartPTY. The session and controlling
// terminal are set up by hooks that run after the slave is installed on
// the standard streams.
func (e *SpawnExecutor) StartPTY(spec *spawn.Spec, slave *os.File) (Process, error) {
	cp := *spec
	cp.Hooks = append([]spawn.Hook{
		spawn.Syscall("setsid", unix.SYS_SETSID),
		spawn.Syscall("tiocsctty", unix.SYS_IOCTL, 0, unix.TIOCSCTTY, 0),
	}, spec.Hooks...)
	if _, ok := cp.Env.Lookup("TERM"); !ok {
		cp.Env = cp.Env.Clone()
		cp.SetEnv("TERM", "xterm-256color")
	}
	cp.Stdin, cp.Stdout, cp.Stderr = spawn.File(slave), spawn.File(slave), spawn.File(slave)

	child, err := e.spawner().Spawn(&cp)
	if err != nil {
		return nil, err
	}
	return &spawnProcess{proc: child.Process, copies: new(errgroup.Group)}, nil
}

func (e *SpawnExecutor) spawner() *spawn.Spawner {
	if e.Spawner == nil {
		return spawn.New(spawn.WithLogger(e.logger()))
	}
	return e.Spawner
}

func (e *SpawnExecutor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Default returns the default SpawnExecutor.
func Default() Executor {
	return &SpawnExecutor{}
}
