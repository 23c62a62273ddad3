//go:build linux

// spawn - launch a program through the spawn engine
//
// Usage:
//
//	spawn [flags] -- <program> [args...]
//	spawn --which <program>
//
// The exit status is the program's: its exit code, or 128+N when it was
// killed by signal N. Failures to start exit with 127 (not found), 126 (not
// executable) or 1.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/mbrock/spawn/internal/executor"
	"github.com/mbrock/spawn/internal/logging"
	"github.com/mbrock/spawn/internal/procinfo"
	"github.com/mbrock/spawn/pkg/spawn"
)

const (
	exitUsage       = 2
	exitNotExec     = 126
	exitNotFound    = 127
	exitSpawnFailed = 1
)

// app carries the process-level dependencies so tests can replace them.
type app struct {
	stdin          *os.File
	stdout, stderr io.Writer
	getenv         func(string) string

	// executor, when set, is used instead of one built from the flags.
	executor executor.Executor
	openPTY  func() (executor.PTYPair, error)
}

func main() {
	a := &app{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		getenv:  os.Getenv,
		openPTY: executor.OpenRealPTY,
	}
	os.Exit(a.run(os.Args[1:]))
}

type options struct {
	env      []string
	unset    []string
	clearEnv bool
	dir      string
	uid, gid int64
	umask    string
	nofile   uint64
	pdeath   string

	stdin, stdout, stderr string
	tty                   bool

	strategy string
	describe bool
	which    bool

	debug   bool
	journal bool
}

func (a *app) flags(o *options) *flag.FlagSet {
	fs := flag.NewFlagSet("spawn", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.SetInterspersed(false)

	fs.StringArrayVarP(&o.env, "env", "e", nil, "Set environment variable KEY=VALUE (can be repeated)")
	fs.StringArrayVar(&o.unset, "unset", nil, "Remove environment variable (can be repeated)")
	fs.BoolVar(&o.clearEnv, "clear-env", false, "Start from an empty environment")
	fs.StringVarP(&o.dir, "dir", "C", "", "Working directory for the program")
	fs.Int64Var(&o.uid, "uid", -1, "Run as this user id")
	fs.Int64Var(&o.gid, "gid", -1, "Run with this group id")
	fs.StringVar(&o.umask, "umask", "", "File mode creation mask, in octal")
	fs.Uint64Var(&o.nofile, "nofile", 0, "Open file limit (0 = unchanged)")
	fs.StringVar(&o.pdeath, "pdeathsig", "", "Signal delivered to the program when spawn exits (e.g. TERM)")

	fs.StringVar(&o.stdin, "stdin", "inherit", "Standard input: inherit, null")
	fs.StringVar(&o.stdout, "stdout", "inherit", "Standard output: inherit, null")
	fs.StringVar(&o.stderr, "stderr", "inherit", "Standard error: inherit, null")
	fs.BoolVar(&o.tty, "tty", false, "Run the program on a new pseudo-terminal")

	fs.StringVar(&o.strategy, "strategy", a.getenv("SPAWN_STRATEGY"), "Spawn strategy: auto, fast, fork (overrides SPAWN_STRATEGY)")
	fs.BoolVar(&o.describe, "describe", false, "Log a description of the started process")
	fs.BoolVar(&o.which, "which", false, "Print the candidate paths for the program and exit")

	fs.BoolVar(&o.debug, "debug", a.getenv("SPAWN_DEBUG") != "", "Debug logging (overrides SPAWN_DEBUG)")
	fs.BoolVar(&o.journal, "journal", a.getenv("SPAWN_JOURNAL") != "", "Log to journald (overrides SPAWN_JOURNAL)")

	fs.Usage = func() {
		fmt.Fprintf(a.stderr, `spawn - launch a program through the spawn engine

Usage:
  spawn [flags] -- <program> [args...]
  spawn --which <program>

Flags:
`)
		fs.PrintDefaults()
	}
	return fs
}

func (a *app) run(args []string) int {
	var o options
	fs := a.flags(&o)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return exitUsage
	}
	command := fs.Args()
	if len(command) == 0 {
		fs.Usage()
		return exitUsage
	}

	logger, err := logging.Setup(logging.Options{Debug: o.debug, Journal: o.journal, Output: a.stderr})
	if err != nil {
		return a.fail("setting up logging: %v", err)
	}

	spec, err := buildSpec(command, &o)
	if err != nil {
		a.errorf("%v", err)
		return exitUsage
	}

	if o.which {
		return a.which(spec)
	}

	strategy, err := spawn.ParseStrategy(o.strategy)
	if err != nil {
		a.errorf("%v", err)
		return exitUsage
	}

	exec := a.executor
	if exec == nil {
		exec = &executor.SpawnExecutor{
			Spawner: spawn.New(spawn.WithStrategy(strategy), spawn.WithLogger(logger)),
			Logger:  logger,
		}
	}

	var proc executor.Process
	var relay *ptyRelay
	if o.tty {
		relay, err = a.startPTY(exec, spec)
		if relay != nil {
			proc = relay.proc
		}
	} else {
		proc, err = a.start(exec, spec, &o)
	}
	if err != nil {
		return a.spawnFailed(err)
	}

	if o.describe {
		if info, err := procinfo.Describe(context.Background(), proc.Pid()); err != nil {
			logger.Warn("describing process", "pid", proc.Pid(), "error", err)
		} else {
			logger.Info("started process", "process", info)
		}
	}

	stopForwarding := killOnSignal(proc, logger)
	code, err := proc.Wait()
	stopForwarding()
	if relay != nil {
		relay.finish()
	}
	if err != nil {
		a.errorf("waiting for %s: %v", spec.Program, err)
	}
	logger.Debug("process exited", "pid", proc.Pid(), "code", code)
	return code
}

func buildSpec(command []string, o *options) (*spawn.Spec, error) {
	spec := spawn.Command(command[0], command[1:]...)
	if o.clearEnv {
		spec.ClearEnv()
	}
	for _, name := range o.unset {
		spec.UnsetEnv(name)
	}
	for _, kv := range o.env {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --env %q (want KEY=VALUE)", kv)
		}
		spec.SetEnv(name, val)
	}
	if o.dir != "" {
		spec.SetDir(o.dir)
	}
	if id, err := credential("uid", o.uid); err != nil {
		return nil, err
	} else if id != nil {
		spec.Uid = id
	}
	if id, err := credential("gid", o.gid); err != nil {
		return nil, err
	} else if id != nil {
		spec.Gid = id
	}
	if o.umask != "" {
		mask, err := strconv.ParseUint(o.umask, 8, 32)
		if err != nil || mask > 0o777 {
			return nil, fmt.Errorf("invalid --umask %q", o.umask)
		}
		spec.AddHook(spawn.Umask(int(mask)))
	}
	if o.nofile > 0 {
		spec.AddHook(spawn.Setrlimit(unix.RLIMIT_NOFILE, unix.Rlimit{Cur: o.nofile, Max: o.nofile}))
	}
	if o.pdeath != "" {
		sig, err := parseSignal(o.pdeath)
		if err != nil {
			return nil, err
		}
		spec.AddHook(spawn.Pdeathsig(sig))
	}

	for _, s := range []struct {
		flag, value string
		dst         *spawn.Stdio
	}{{"stdin", o.stdin, &spec.Stdin}, {"stdout", o.stdout, &spec.Stdout}, {"stderr", o.stderr, &spec.Stderr}} {
		switch s.value {
		case "inherit":
			*s.dst = spawn.Inherit
		case "null":
			*s.dst = spawn.Null
		default:
			return nil, fmt.Errorf("invalid --%s %q (want inherit or null)", s.flag, s.value)
		}
		if o.tty && s.value != "inherit" {
			return nil, fmt.Errorf("--%s cannot be combined with --tty", s.flag)
		}
	}
	return spec, nil
}

// credential validates a --uid or --gid value; -1 means unchanged.
func credential(name string, v int64) (*uint32, error) {
	if v == -1 {
		return nil, nil
	}
	if v < 0 || v > math.MaxUint32 {
		return nil, fmt.Errorf("invalid --%s %d", name, v)
	}
	id := uint32(v)
	return &id, nil
}

// parseSignal accepts "TERM", "SIGTERM" or "15".
func parseSignal(s string) (syscall.Signal, error) {
	if n, err := strconv.Atoi(s); err == nil && n > 0 && n < 65 {
		return syscall.Signal(n), nil
	}
	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	if sig := unix.SignalNum(name); sig != 0 {
		return sig, nil
	}
	return 0, fmt.Errorf("unknown signal %q", s)
}

func (a *app) which(spec *spawn.Spec) int {
	candidates, searched := spawn.Candidates(spec.Program, spec.Env)
	if !searched {
		if strings.Contains(spec.Program, "/") {
			fmt.Fprintln(a.stdout, spec.Program)
			return 0
		}
		a.errorf("%s: no PATH to search", spec.Program)
		return exitNotFound
	}
	for _, c := range candidates {
		fmt.Fprintln(a.stdout, c)
	}
	return 0
}

// start runs spec with the streams selected by the stdio flags. Inherited
// streams are installed directly; null streams are passed as nil.
func (a *app) start(exec executor.Executor, spec *spawn.Spec, o *options) (executor.Process, error) {
	var stdin io.Reader
	var stdout, stderr io.Writer
	if o.stdin == "inherit" {
		stdin = a.stdin
	}
	if o.stdout == "inherit" {
		stdout = a.stdout
	}
	if o.stderr == "inherit" {
		stderr = a.stderr
	}
	return exec.Start(spec, stdin, stdout, stderr)
}

func (a *app) spawnFailed(err error) int {
	a.errorf("%v", err)
	switch {
	case errors.Is(err, spawn.ErrNotFound):
		return exitNotFound
	case errors.Is(err, spawn.ErrPermission):
		return exitNotExec
	case errors.Is(err, spawn.ErrInvalidInput):
		return exitUsage
	}
	return exitSpawnFailed
}

// killOnSignal kills proc when spawn receives SIGINT or SIGTERM. The
// returned function stops watching.
func killOnSignal(proc executor.Process, logger *slog.Logger) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, killing process", "signal", sig, "pid", proc.Pid())
			proc.Kill()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func (a *app) errorf(format string, args ...any) {
	fmt.Fprintf(a.stderr, "error: "+format+"\n", args...)
}

func (a *app) fail(format string, args ...any) int {
	a.errorf(format, args...)
	return exitSpawnFailed
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
