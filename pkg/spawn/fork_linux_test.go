//go:build linux && (amd64 || arm64)

package spawn

import (
	"errors"
	"syscall"
	"testing"

	"golang.org/x/sys/unix"
)

// errPipe returns the read end of a pipe that already holds data and has its
// write end closed, as the parent sees it after the child exits.
func errPipe(t *testing.T, data []byte) int {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		t.Fatal(err)
	}
	if len(data) > 0 {
		if _, err := unix.Write(fds[1], data); err != nil {
			t.Fatal(err)
		}
	}
	unix.Close(fds[1])
	t.Cleanup(func() { unix.Close(fds[0]) })
	return fds[0]
}

// readOutcome runs readErrPipe and recovers a protocol panic.
func readOutcome(fd int, proc *Process) (err error, perr *ProtocolError) {
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(*ProtocolError)
			if !ok {
				panic(r)
			}
			perr = pe
		}
	}()
	return readErrPipe(fd, proc, "prog"), nil
}

func failureMsg(errno syscall.Errno) []byte {
	var msg [errMsgLen]byte
	encodeErrMsg(&msg, uint32(errno))
	return msg[:]
}

func TestReadErrPipe(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantErrno syscall.Errno
		wantKind  Kind
		wantPanic string
		wantReaps int
	}{
		{name: "exec succeeded", data: nil},
		{name: "not found", data: failureMsg(syscall.ENOENT), wantErrno: syscall.ENOENT, wantKind: KindNotFound, wantReaps: 1},
		{name: "permission", data: failureMsg(syscall.EACCES), wantErrno: syscall.EACCES, wantKind: KindPermission, wantReaps: 1},
		{name: "other errno", data: failureMsg(syscall.EINVAL), wantErrno: syscall.EINVAL, wantKind: KindOS, wantReaps: 1},
		{name: "short read", data: []byte{0, 0, 2}, wantPanic: "short read", wantReaps: 1},
		{name: "bad marker", data: []byte{0, 0, 0, 2, 'N', 'O', 'P', 'E'}, wantPanic: "bad marker", wantReaps: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeOS{status: unix.WaitStatus(1 << 8)}
			installFakeOS(t, f)

			proc := newProcess(4242)
			err, perr := readOutcome(errPipe(t, tt.data), proc)

			if f.waits != tt.wantReaps {
				t.Errorf("child reaped %d times, want %d", f.waits, tt.wantReaps)
			}
			switch {
			case tt.wantPanic != "":
				if perr == nil {
					t.Fatalf("expected a protocol panic, got error %v", err)
				}
				if perr.Reason != tt.wantPanic {
					t.Errorf("reason = %q, want %q", perr.Reason, tt.wantPanic)
				}
				if proc.cached() == nil {
					t.Error("child must be reaped before the panic")
				}
			case tt.wantErrno != 0:
				var serr *Error
				if !errors.As(err, &serr) {
					t.Fatalf("expected *Error, got %v (panic %v)", err, perr)
				}
				if serr.Errno != tt.wantErrno || serr.Kind != tt.wantKind {
					t.Errorf("got errno %v kind %v, want %v %v", serr.Errno, serr.Kind, tt.wantErrno, tt.wantKind)
				}
			default:
				if err != nil || perr != nil {
					t.Fatalf("expected success, got %v / %v", err, perr)
				}
				if proc.cached() != nil {
					t.Error("a running child must not be reaped")
				}
			}
		})
	}
}

func TestReadErrPipeRetriesEINTR(t *testing.T) {
	f := &fakeOS{}
	installFakeOS(t, f)

	interrupts := 3
	orig := sysRead
	t.Cleanup(func() { sysRead = orig })
	sysRead = func(fd int, p []byte) (int, error) {
		if interrupts > 0 {
			interrupts--
			return -1, unix.EINTR
		}
		return orig(fd, p)
	}

	err, perr := readOutcome(errPipe(t, failureMsg(syscall.ENOENT)), newProcess(4242))
	if perr != nil {
		t.Fatalf("unexpected panic %v", perr)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if interrupts != 0 {
		t.Errorf("%d interrupts left unconsumed", interrupts)
	}
}

func TestReadErrPipeReadFailure(t *testing.T) {
	f := &fakeOS{}
	installFakeOS(t, f)

	orig := sysRead
	t.Cleanup(func() { sysRead = orig })
	sysRead = func(int, []byte) (int, error) { return -1, unix.EIO }

	_, perr := readOutcome(errPipe(t, nil), newProcess(4242))
	if perr == nil {
		t.Fatal("expected a protocol panic")
	}
	if f.waits != 1 {
		t.Errorf("child reaped %d times, want 1", f.waits)
	}
}
