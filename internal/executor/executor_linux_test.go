//go:build linux

package executor

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/mbrock/spawn/pkg/spawn"
)

func newTestExecutor() *SpawnExecutor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &SpawnExecutor{Spawner: spawn.New(spawn.WithLogger(logger)), Logger: logger}
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

func TestSpawnExecutor_CopiesStreams(t *testing.T) {
	requireShell(t)

	var stdout, stderr bytes.Buffer
	proc, err := newTestExecutor().Start(
		spawn.Command("/bin/sh", "-c", "tr a-z A-Z; echo oops >&2; exit 5"),
		strings.NewReader("hello"), &stdout, &stderr)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	code, err := proc.Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if code != 5 {
		t.Errorf("exit code %d, want 5", code)
	}
	if stdout.String() != "HELLO" || stderr.String() != "oops\n" {
		t.Errorf("stdout %q, stderr %q", stdout.String(), stderr.String())
	}
}

func TestSpawnExecutor_FilesAreInstalledDirectly(t *testing.T) {
	requireShell(t)

	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	proc, err := newTestExecutor().Start(spawn.Command("/bin/sh", "-c", "echo direct"), nil, f, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if code, err := proc.Wait(); err != nil || code != 0 {
		t.Fatalf("Wait = %d, %v", code, err)
	}
	data, _ := os.ReadFile(f.Name())
	if string(data) != "direct\n" {
		t.Errorf("file contents %q", data)
	}
}

func TestSpawnExecutor_KillReportsSignalCode(t *testing.T) {
	requireShell(t)

	proc, err := newTestExecutor().Start(spawn.Command("/bin/sh", "-c", "exec sleep 30"), nil, nil, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := proc.Kill(); err != nil {
		t.Fatal(err)
	}
	code, err := proc.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if code != 128+9 {
		t.Errorf("exit code %d, want 137", code)
	}
	if err := proc.Kill(); !errors.Is(err, spawn.ErrInvalidState) {
		t.Errorf("Kill after Wait = %v", err)
	}
}

func TestSpawnExecutor_StartPTY(t *testing.T) {
	requireShell(t)

	pair, err := OpenRealPTY()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	defer pair.Close()

	proc, err := newTestExecutor().StartPTY(
		spawn.Command("/bin/sh", "-c", `test -t 0 && echo "tty $TERM"`), pair.Slave())
	if errors.Is(err, errors.ErrUnsupported) {
		t.Skip("session hooks need the fork strategy")
	}
	if err != nil {
		t.Fatalf("StartPTY failed: %v", err)
	}
	pair.CloseSlave()

	line, err := bufio.NewReader(pair.Master()).ReadString('\n')
	if err != nil {
		t.Fatalf("reading pty: %v", err)
	}
	if code, _ := proc.Wait(); code != 0 {
		t.Errorf("exit code %d", code)
	}
	if strings.TrimSpace(line) != "tty xterm-256color" {
		t.Errorf("pty output %q", line)
	}
}

func TestSpawnExecutor_WaitClosesStdinPipe(t *testing.T) {
	requireShell(t)

	// The caller's stdin never reaches end of file.
	pr, pw := io.Pipe()
	defer pw.Close()

	proc, err := newTestExecutor().Start(spawn.Command("/bin/sh", "-c", "exit 0"), pr, nil, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if code, err := proc.Wait(); err != nil || code != 0 {
		t.Fatalf("Wait = %d, %v", code, err)
	}

	sp := proc.(*spawnProcess)
	if sp.stdin == nil {
		t.Fatal("piped stdin was not recorded")
	}
	if _, err := sp.stdin.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Errorf("write after Wait = %v, want os.ErrClosed", err)
	}
}

func TestSpawnExecutor_KillDuringWait(t *testing.T) {
	requireShell(t)

	proc, err := newTestExecutor().Start(spawn.Command("/bin/sh", "-c", "exec sleep 0.05"), nil, nil, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		for {
			err := proc.Kill()
			if errors.Is(err, spawn.ErrInvalidState) {
				done <- nil
				return
			}
			if err != nil {
				done <- err
				return
			}
		}
	}()

	if _, err := proc.Wait(); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Errorf("Kill during Wait = %v", err)
	}
}
