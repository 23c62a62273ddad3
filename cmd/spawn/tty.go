//go:build linux

package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/mbrock/spawn/internal/executor"
	"github.com/mbrock/spawn/pkg/spawn"
)

// ptyRelay copies between the local terminal and a PTY master while the
// program runs on the slave side.
type ptyRelay struct {
	proc     executor.Process
	pair     executor.PTYPair
	output   chan struct{}
	restore  func()
	winch    chan os.Signal
	stopSize chan struct{}
}

func (a *app) startPTY(exec executor.Executor, spec *spawn.Spec) (*ptyRelay, error) {
	pair, err := a.openPTY()
	if err != nil {
		return nil, err
	}

	rows, cols := uint16(24), uint16(80)
	if isTerminal(a.stdin) {
		if w, h, err := term.GetSize(int(a.stdin.Fd())); err == nil {
			rows, cols = uint16(h), uint16(w)
		}
	}
	if err := pair.SetSize(rows, cols); err != nil {
		pair.Close()
		return nil, err
	}

	proc, err := exec.StartPTY(spec, pair.Slave())
	if err != nil {
		pair.Close()
		return nil, err
	}
	// Close the slave side - child now owns it
	pair.CloseSlave()

	r := &ptyRelay{
		proc:     proc,
		pair:     pair,
		output:   make(chan struct{}),
		restore:  func() {},
		stopSize: make(chan struct{}),
	}

	// Put terminal in raw mode
	if isTerminal(a.stdin) {
		fd := int(a.stdin.Fd())
		if oldState, err := term.MakeRaw(fd); err == nil {
			r.restore = func() { term.Restore(fd, oldState) }
		}
		r.followSize(fd)
	}

	go func() {
		defer close(r.output)
		io.Copy(a.stdout, pair.Master())
	}()
	if a.stdin != nil {
		go io.Copy(pair.Master(), a.stdin)
	}
	return r, nil
}

// followSize resizes the PTY whenever the local terminal changes size.
func (r *ptyRelay) followSize(fd int) {
	r.winch = make(chan os.Signal, 1)
	signal.Notify(r.winch, syscall.SIGWINCH)
	go func() {
		for {
			select {
			case <-r.winch:
				if w, h, err := term.GetSize(fd); err == nil {
					r.pair.SetSize(uint16(h), uint16(w))
				}
			case <-r.stopSize:
				return
			}
		}
	}()
}

// finish waits for the remaining output, then restores the terminal.
func (r *ptyRelay) finish() {
	<-r.output
	if r.winch != nil {
		signal.Stop(r.winch)
	}
	close(r.stopSize)
	r.pair.Close()
	r.restore()
}
