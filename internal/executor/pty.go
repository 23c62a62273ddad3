package executor

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/creack/pty"
)

// PTYPair represents a bidirectional connection for terminal I/O.
// This abstraction allows testing with fake PTYs.
type PTYPair interface {
	// Master returns the master side (what we read/write)
	Master() io.ReadWriteCloser
	// Slave returns the slave side, installed as the child's standard streams
	Slave() *os.File
	// SetSize sets the terminal size
	SetSize(rows, cols uint16) error
	// Close closes both sides
	Close() error
	// CloseSlave closes just the slave side (after the child inherits it)
	CloseSlave() error
}

// RealPTY implements PTYPair using actual Unix PTYs.
type RealPTY struct {
	master *os.File
	slave  *os.File
}

// OpenRealPTY creates a real PTY pair.
func OpenRealPTY() (PTYPair, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("opening pty: %w", err)
	}
	return &RealPTY{master: master, slave: slave}, nil
}

func (p *RealPTY) Master() io.ReadWriteCloser { return p.master }
func (p *RealPTY) Slave() *os.File            { return p.slave }

func (p *RealPTY) SetSize(rows, cols uint16) error {
	return pty.Setsize(p.master, &pty.Winsize{Rows: rows, Cols: cols})
}

func (p *RealPTY) Close() error {
	p.master.Close()
	return p.CloseSlave()
}

func (p *RealPTY) CloseSlave() error {
	if p.slave != nil {
		err := p.slave.Close()
		p.slave = nil
		return err
	}
	return nil
}

// FakePTY implements PTYPair using a Unix socket pair for testing.
// Unlike pipes, socket pairs are bidirectional - each end can read and write,
// matching the semantics of a real PTY.
type FakePTY struct {
	master     *os.File
	slave      *os.File
	Rows, Cols uint16
}

// OpenFakePTY creates a fake PTY pair using a Unix socket pair.
func OpenFakePTY() (PTYPair, error) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("creating socket pair: %w", err)
	}
	return &FakePTY{
		master: os.NewFile(uintptr(fds[0]), "fakePTY-master"),
		slave:  os.NewFile(uintptr(fds[1]), "fakePTY-slave"),
		Rows:   24,
		Cols:   80,
	}, nil
}

func (p *FakePTY) Master() io.ReadWriteCloser { return p.master }
func (p *FakePTY) Slave() *os.File            { return p.slave }

func (p *FakePTY) SetSize(rows, cols uint16) error {
	p.Rows, p.Cols = rows, cols
	return nil
}

func (p *FakePTY) Close() error {
	p.master.Close()
	return p.CloseSlave()
}

func (p *FakePTY) CloseSlave() error {
	if p.slave != nil {
		p.slave.Close()
		p.slave = nil
	}
	return nil
}
