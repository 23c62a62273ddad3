// Package procinfo describes running processes for diagnostics.
package procinfo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Info is a snapshot of a process. Fields the platform does not report are
// left empty.
type Info struct {
	Pid     int
	Ppid    int
	Name    string
	Exe     string
	Cmdline []string
	Status  string
	Started time.Time
}

// Describe takes a snapshot of pid. A process that exits while it is being
// read may produce a partial Info.
func Describe(ctx context.Context, pid int) (*Info, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, fmt.Errorf("inspecting pid %d: %w", pid, err)
	}

	info := &Info{Pid: pid}
	if ppid, err := p.PpidWithContext(ctx); err == nil {
		info.Ppid = int(ppid)
	}
	if name, err := p.NameWithContext(ctx); err == nil {
		info.Name = name
	}
	if exe, err := p.ExeWithContext(ctx); err == nil {
		info.Exe = exe
	}
	if args, err := p.CmdlineSliceWithContext(ctx); err == nil {
		info.Cmdline = args
	}
	if st, err := p.StatusWithContext(ctx); err == nil {
		info.Status = strings.Join(st, ",")
	}
	if ms, err := p.CreateTimeWithContext(ctx); err == nil {
		info.Started = time.UnixMilli(ms)
	}
	return info, nil
}

func (i *Info) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pid", i.Pid),
		slog.Int("ppid", i.Ppid),
		slog.String("name", i.Name),
		slog.String("exe", i.Exe),
		slog.String("cmdline", strings.Join(i.Cmdline, " ")),
		slog.String("status", i.Status),
	)
}

func (i *Info) String() string {
	return fmt.Sprintf("pid %d (%s) ppid %d exe %s: %s", i.Pid, i.Name, i.Ppid, i.Exe, strings.Join(i.Cmdline, " "))
}
