package spawn

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
)

// Strategy selects how a process is created.
type Strategy int

const (
	// StrategyAuto uses the fast path whenever the Spec allows it.
	StrategyAuto Strategy = iota
	// StrategyFast requires the fast path; ineligible Specs are rejected.
	StrategyFast
	// StrategyFork always forks and runs the child setup sequence.
	StrategyFork
)

func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyFast:
		return "fast"
	case StrategyFork:
		return "fork"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy parses the names printed by Strategy.String.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return StrategyAuto, nil
	case "fast":
		return StrategyFast, nil
	case "fork":
		return StrategyFork, nil
	}
	return 0, fmt.Errorf("unknown spawn strategy %q (want auto, fast or fork)", name)
}

// Option configures a Spawner.
type Option func(*Spawner)

func WithStrategy(s Strategy) Option {
	return func(sp *Spawner) { sp.strategy = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(sp *Spawner) { sp.logger = l }
}

// WithSignalReset replaces DefaultSignalReset.
func WithSignalReset(r SignalReset) Option {
	return func(sp *Spawner) { sp.signals = r }
}

// Spawner launches processes. It holds no per-spawn state and is safe for
// concurrent use.
type Spawner struct {
	strategy Strategy
	logger   *slog.Logger
	signals  SignalReset
}

func New(opts ...Option) *Spawner {
	s := &Spawner{
		strategy: StrategyAuto,
		signals:  DefaultSignalReset(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Child is a spawned process together with the parent ends of any streams
// configured as Pipe.
type Child struct {
	Process *Process
	Stdin   *os.File
	Stdout  *os.File
	Stderr  *os.File
}

// Wait closes Stdin, so a child reading it sees end of file, and waits.
func (c *Child) Wait() (ExitStatus, error) {
	if c.Stdin != nil {
		c.Stdin.Close()
		c.Stdin = nil
	}
	return c.Process.Wait()
}

// Spawn launches spec. Descriptors for Null and Pipe streams are created
// here and the child-side ends are closed before returning.
func (s *Spawner) Spawn(spec *Spec) (*Child, error) {
	if err := spec.validate("spawn"); err != nil {
		return nil, err
	}
	stdio, err := setupStdio(spec)
	if err != nil {
		return nil, err
	}
	proc, err := s.spawn(spec, stdio.child)
	stdio.closeChild()
	if err != nil {
		stdio.closeParent()
		return nil, err
	}
	return &Child{
		Process: proc,
		Stdin:   stdio.parent[0],
		Stdout:  stdio.parent[1],
		Stderr:  stdio.parent[2],
	}, nil
}

// SpawnPipes launches spec with standard streams already resolved by the
// caller. The stdio directives of spec are ignored.
func (s *Spawner) SpawnPipes(spec *Spec, pipes ChildPipes) (*Process, error) {
	if err := spec.validate("spawn"); err != nil {
		return nil, err
	}
	return s.spawn(spec, pipes)
}

// prepared is a validated Spec flattened for the strategies.
type prepared struct {
	program    string
	argv       []string
	env        []string // nil: inherit
	candidates []string
	searched   bool
	dir        string
	uid, gid   *uint32
	hooks      []Hook
}

func prepare(spec *Spec) *prepared {
	p := &prepared{
		program: spec.Program,
		argv:    spec.argv(),
		dir:     spec.Dir,
		uid:     spec.Uid,
		gid:     spec.Gid,
		hooks:   spec.Hooks,
	}
	if spec.Env != nil {
		p.env = spec.Env.Environ()
	}
	p.candidates, p.searched = Candidates(spec.Program, spec.Env)
	return p
}

func (s *Spawner) spawn(spec *Spec, pipes ChildPipes) (*Process, error) {
	strategy, err := s.choose(spec)
	if err != nil {
		return nil, err
	}

	p := prepare(spec)
	var proc *Process
	switch strategy {
	case StrategyFast:
		proc, err = spawnFast(p, pipes)
	default:
		proc, err = spawnFork(p, pipes, s.signals)
	}
	if err != nil {
		s.logger.Debug("spawn failed", "program", spec.Program, "strategy", strategy, "error", err)
		return nil, err
	}
	s.logger.Debug("spawned process", "program", spec.Program, "strategy", strategy, "pid", proc.Pid())
	return proc, nil
}

// choose resolves the configured strategy for spec.
func (s *Spawner) choose(spec *Spec) (Strategy, error) {
	if !forkSupported {
		if s.strategy == StrategyFork || len(spec.Hooks) > 0 {
			return 0, &Error{Op: "spawn", Program: spec.Program, Kind: KindOS, Errno: syscall.ENOSYS,
				Msg: "fork strategy not available on this platform"}
		}
		return StrategyFast, nil
	}

	switch s.strategy {
	case StrategyFork:
		return StrategyFork, nil
	case StrategyFast:
		if reason := s.fastIneligible(spec); reason != "" {
			return 0, invalidInput("spawn", spec.Program, "fast strategy unavailable: %s", reason)
		}
		return StrategyFast, nil
	default:
		if s.fastIneligible(spec) == "" {
			return StrategyFast, nil
		}
		return StrategyFork, nil
	}
}

// fastIneligible explains why spec cannot take the fast path, or returns "".
func (s *Spawner) fastIneligible(spec *Spec) string {
	switch {
	case spec.Dir != "":
		return "working directory override"
	case spec.Uid != nil || spec.Gid != nil:
		return "credential override"
	case spec.Env.AffectsPath():
		return "environment overrides PATH"
	case len(spec.Hooks) > 0:
		return "pre-exec hooks"
	case !fastSpawnCapable():
		return "fast spawn does not report missing programs"
	case !s.signals.satisfiedByRuntime():
		return "inherited signal state needs a reset"
	}
	return ""
}
