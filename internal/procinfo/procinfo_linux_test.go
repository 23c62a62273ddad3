//go:build linux

package procinfo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDescribeSelf(t *testing.T) {
	info, err := Describe(context.Background(), os.Getpid())
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if info.Pid != os.Getpid() || info.Ppid != os.Getppid() {
		t.Errorf("pid %d ppid %d", info.Pid, info.Ppid)
	}
	self, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(info.Exe) != filepath.Base(self) {
		t.Errorf("exe %q, want %q", info.Exe, self)
	}
	if len(info.Cmdline) != len(os.Args) {
		t.Errorf("cmdline %q, want %q", info.Cmdline, os.Args)
	}
	if info.Started.IsZero() {
		t.Error("missing start time")
	}
}

func TestDescribeMissing(t *testing.T) {
	// Above the kernel's pid_max limit.
	if _, err := Describe(context.Background(), 1<<23); err == nil {
		t.Error("expected an error for a pid that cannot exist")
	}
}
