package spawn

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type stdioKind int

const (
	stdioInherit stdioKind = iota
	stdioNull
	stdioFd
	stdioPipe
)

// Stdio is the redirection directive for one standard stream.
type Stdio struct {
	kind stdioKind
	fd   int
}

var (
	// Inherit leaves the stream as the parent has it.
	Inherit = Stdio{}
	// Null connects the stream to /dev/null.
	Null = Stdio{kind: stdioNull}
	// Pipe creates a pipe; the parent end is returned in Child.
	Pipe = Stdio{kind: stdioPipe}
)

// Fd installs an existing descriptor. The caller keeps ownership and must
// keep it open until the spawn returns.
func Fd(fd int) Stdio {
	return Stdio{kind: stdioFd, fd: fd}
}

// File installs f's descriptor, see Fd.
func File(f *os.File) Stdio {
	return Fd(int(f.Fd()))
}

func (s Stdio) String() string {
	switch s.kind {
	case stdioInherit:
		return "inherit"
	case stdioNull:
		return "null"
	case stdioPipe:
		return "pipe"
	default:
		return fmt.Sprintf("fd %d", s.fd)
	}
}

// ChildPipes are the descriptors to install over fds 0, 1 and 2 in the
// child. -1 leaves the stream inherited.
type ChildPipes struct {
	Stdin, Stdout, Stderr int
}

// InheritPipes leaves all three streams alone.
func InheritPipes() ChildPipes {
	return ChildPipes{Stdin: -1, Stdout: -1, Stderr: -1}
}

func (p ChildPipes) fds() [3]int {
	return [3]int{p.Stdin, p.Stdout, p.Stderr}
}

// stdioSetup holds the result of resolving a Spec's three directives.
type stdioSetup struct {
	child  ChildPipes
	parent [3]*os.File
	owned  []int // child-side descriptors we opened and must close
}

var streamNames = [3]string{"stdin", "stdout", "stderr"}

func setupStdio(spec *Spec) (*stdioSetup, error) {
	ss := &stdioSetup{child: InheritPipes()}
	child := [3]int{-1, -1, -1}

	for i, st := range [3]Stdio{spec.Stdin, spec.Stdout, spec.Stderr} {
		input := i == 0
		switch st.kind {
		case stdioInherit:
		case stdioFd:
			child[i] = st.fd
		case stdioNull:
			flags := unix.O_WRONLY
			if input {
				flags = unix.O_RDONLY
			}
			fd, err := unix.Open(os.DevNull, flags|unix.O_CLOEXEC, 0)
			if err != nil {
				ss.close()
				return nil, &Error{Op: "spawn", Program: spec.Program, Kind: errnoKind(asErrno(err)), Errno: asErrno(err), Msg: "opening " + os.DevNull + " for " + streamNames[i]}
			}
			ss.owned = append(ss.owned, fd)
			child[i] = fd
		case stdioPipe:
			var p [2]int
			if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
				ss.close()
				return nil, &Error{Op: "spawn", Program: spec.Program, Kind: KindOS, Errno: asErrno(err), Msg: "creating " + streamNames[i] + " pipe"}
			}
			r, w := p[0], p[1]
			if input {
				child[i] = r
				ss.owned = append(ss.owned, r)
				ss.parent[i] = os.NewFile(uintptr(w), "|0")
			} else {
				child[i] = w
				ss.owned = append(ss.owned, w)
				ss.parent[i] = os.NewFile(uintptr(r), fmt.Sprintf("|%d", i))
			}
		}
	}

	ss.child = ChildPipes{Stdin: child[0], Stdout: child[1], Stderr: child[2]}
	return ss, nil
}

// closeChild releases the child-side descriptors once the child has its own
// copies (or failed to start).
func (ss *stdioSetup) closeChild() {
	for _, fd := range ss.owned {
		unix.Close(fd)
	}
	ss.owned = nil
}

func (ss *stdioSetup) closeParent() {
	for i, f := range ss.parent {
		if f != nil {
			f.Close()
			ss.parent[i] = nil
		}
	}
}

func (ss *stdioSetup) close() {
	ss.closeChild()
	ss.closeParent()
}
