package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/mbrock/spawn/pkg/spawn"
)

// FakeCommand is a function that simulates a command execution.
// It receives the command arguments, stdin, stdout, stderr and should return an exit code.
// The context is cancelled when the process should be killed.
type FakeCommand func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) int

// FakeExecutor is a test implementation of Executor that runs registered fake commands.
type FakeExecutor struct {
	mu       sync.RWMutex
	commands map[string]FakeCommand
	started  []*spawn.Spec
}

// NewFakeExecutor creates a new FakeExecutor.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{
		commands: make(map[string]FakeCommand),
	}
}

// RegisterCommand registers a fake command implementation.
// The name should match the Program of the started Spec.
func (e *FakeExecutor) RegisterCommand(name string, handler FakeCommand) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands[name] = handler
}

// Started returns the specs passed to Start and StartPTY, in order.
func (e *FakeExecutor) Started() []*spawn.Spec {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*spawn.Spec(nil), e.started...)
}

var fakePid atomic.Int64

// fakeProcess implements Process for FakeExecutor.
type fakeProcess struct {
	pid      int
	cancel   context.CancelFunc
	done     chan struct{}
	exitCode int
	mu       sync.Mutex
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Wait() (int, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, nil
}

func (p *fakeProcess) Kill() error {
	select {
	case <-p.done:
		return &spawn.Error{Op: "kill", Kind: spawn.KindInvalidState, Msg: "process already exited"}
	default:
	}
	p.cancel()
	return nil
}

func (e *FakeExecutor) lookup(spec *spawn.Spec) (FakeCommand, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = append(e.started, spec)
	handler, ok := e.commands[spec.Program]
	if !ok {
		return nil, &spawn.Error{Op: "spawn", Program: spec.Program, Kind: spawn.KindNotFound, Errno: syscall.ENOENT}
	}
	return handler, nil
}

// dupFile duplicates f, since the caller will close it after Start returns
// but the handler goroutine needs to keep using it.
func dupFile(f *os.File, name string) (*os.File, error) {
	newFd, err := syscall.Dup(int(f.Fd()))
	if err != nil {
		return nil, fmt.Errorf("dup %s: %w", name, err)
	}
	return os.NewFile(uintptr(newFd), name), nil
}

func (e *FakeExecutor) run(handler FakeCommand, stdin io.Reader, stdout, stderr io.Writer, args []string, owned []*os.File) Process {
	ctx, cancel := context.WithCancel(context.Background())
	proc := &fakeProcess{
		pid:    int(fakePid.Add(1)) + 100000,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer func() {
			for _, f := range owned {
				f.Close()
			}
		}()

		exitCode := handler(ctx, stdin, stdout, stderr, args)
		cancel()
		proc.mu.Lock()
		proc.exitCode = exitCode
		proc.mu.Unlock()
		close(proc.done)
	}()

	return proc
}

// Start implements Executor.Start for FakeExecutor.
func (e *FakeExecutor) Start(spec *spawn.Spec, stdin io.Reader, stdout, stderr io.Writer) (Process, error) {
	handler, err := e.lookup(spec)
	if err != nil {
		return nil, err
	}

	var owned []*os.File
	closeOwned := func() {
		for _, f := range owned {
			f.Close()
		}
	}
	// adopt dups *os.File streams and maps nil (including a typed nil
	// file) to nil.
	adopt := func(v any, name string) (any, error) {
		f, ok := v.(*os.File)
		if !ok {
			return v, nil
		}
		if f == nil {
			return nil, nil
		}
		dup, err := dupFile(f, name)
		if err != nil {
			return nil, err
		}
		owned = append(owned, dup)
		return dup, nil
	}

	var in io.Reader = eofReader{}
	var out, errw io.Writer = io.Discard, io.Discard
	if v, err := adopt(stdin, "stdin"); err != nil {
		closeOwned()
		return nil, err
	} else if v != nil {
		in = v.(io.Reader)
	}
	if v, err := adopt(stdout, "stdout"); err != nil {
		closeOwned()
		return nil, err
	} else if v != nil {
		out = v.(io.Writer)
	}
	if v, err := adopt(stderr, "stderr"); err != nil {
		closeOwned()
		return nil, err
	} else if v != nil {
		errw = v.(io.Writer)
	}
	return e.run(handler, in, out, errw, spec.Args, owned), nil
}

// StartPTY implements Executor.StartPTY for FakeExecutor.
// For testing, we use the slave file directly for I/O since we don't have a real PTY.
func (e *FakeExecutor) StartPTY(spec *spawn.Spec, slave *os.File) (Process, error) {
	handler, err := e.lookup(spec)
	if err != nil {
		return nil, err
	}
	slaveFile, err := dupFile(slave, "slave")
	if err != nil {
		return nil, err
	}
	// For PTY mode, the slave file is used for all I/O
	return e.run(handler, slaveFile, slaveFile, slaveFile, spec.Args, []*os.File{slaveFile}), nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
