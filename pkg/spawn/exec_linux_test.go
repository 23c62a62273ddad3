//go:build linux

package spawn

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

const execHelperEnv = "SPAWN_TEST_EXEC"

// TestMain lets the test binary stand in for a program that calls Exec.
func TestMain(m *testing.M) {
	switch os.Getenv(execHelperEnv) {
	case "":
		os.Exit(m.Run())
	case "replace":
		spec := Command("/bin/sh", "-c", "echo replaced $SPAWN_TEST_EXEC")
		err := quiet().Exec(spec)
		fmt.Fprintln(os.Stderr, "exec returned:", err)
		os.Exit(2)
	case "missing":
		err := quiet().Exec(Command("no-such-program-for-spawn-tests"))
		if errors.Is(err, ErrNotFound) {
			os.Exit(3)
		}
		fmt.Fprintln(os.Stderr, "unexpected error:", err)
		os.Exit(2)
	default:
		os.Exit(2)
	}
}

func execHelper(t *testing.T, mode string) *Output {
	t.Helper()
	self, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	spec := Command(self, "-test.run=^$").SetEnv(execHelperEnv, mode)
	out, err := quiet().Output(spec)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestExecReplacesImage(t *testing.T) {
	requireShell(t)

	out := execHelper(t, "replace")
	if !out.Status.Success() {
		t.Fatalf("status %v, stderr %q", out.Status, out.Stderr)
	}
	if got := strings.TrimSpace(string(out.Stdout)); got != "replaced replace" {
		t.Errorf("stdout %q", got)
	}
}

func TestExecReturnsOnFailure(t *testing.T) {
	out := execHelper(t, "missing")
	if code, ok := out.Status.Code(); !ok || code != 3 {
		t.Errorf("status %v, stderr %q", out.Status, out.Stderr)
	}
}

func TestExecRejectsPipes(t *testing.T) {
	spec := Command("/bin/true")
	spec.Stdout = Pipe
	if err := quiet().Exec(spec); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Exec = %v, want ErrInvalidInput", err)
	}
}
