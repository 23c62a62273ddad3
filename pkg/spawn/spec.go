package spawn

import (
	"strings"
)

// Spec describes one process to launch. The zero values of the optional
// fields mean "as the parent": inherited environment, working directory,
// credentials and standard streams.
type Spec struct {
	// Program is a path, or a bare name searched along PATH.
	Program string
	// Args is the full argument vector, argv[0] included. Empty means
	// []string{Program}.
	Args []string
	// Env replaces the environment when non-nil.
	Env *Env
	// Dir is the working directory of the child.
	Dir string
	Uid *uint32
	Gid *uint32
	// Hooks run in the child, in order, after credentials, working
	// directory and signal state are applied and before exec.
	Hooks []Hook

	Stdin, Stdout, Stderr Stdio
}

// Command returns a Spec running program with args, argv[0] being program.
func Command(program string, args ...string) *Spec {
	return &Spec{
		Program: program,
		Args:    append([]string{program}, args...),
	}
}

// SetEnv sets a variable, starting from a copy of the current environment the
// first time the Spec's environment is touched.
func (s *Spec) SetEnv(name, value string) *Spec {
	if s.Env == nil {
		s.Env = InheritEnv()
	}
	s.Env.Set(name, value)
	return s
}

func (s *Spec) UnsetEnv(name string) *Spec {
	if s.Env == nil {
		s.Env = InheritEnv()
	}
	s.Env.Unset(name)
	return s
}

// ClearEnv makes the child start from an empty environment.
func (s *Spec) ClearEnv() *Spec {
	s.Env = EmptyEnv()
	return s
}

func (s *Spec) SetDir(dir string) *Spec {
	s.Dir = dir
	return s
}

func (s *Spec) SetUid(uid uint32) *Spec {
	s.Uid = &uid
	return s
}

func (s *Spec) SetGid(gid uint32) *Spec {
	s.Gid = &gid
	return s
}

func (s *Spec) AddHook(h Hook) *Spec {
	s.Hooks = append(s.Hooks, h)
	return s
}

func (s *Spec) argv() []string {
	if len(s.Args) == 0 {
		return []string{s.Program}
	}
	return s.Args
}

// validate rejects what the kernel cannot be handed: NUL bytes anywhere and
// malformed variable names. It runs before any descriptor or process is
// created.
func (s *Spec) validate(op string) error {
	if s.Program == "" {
		return invalidInput(op, s.Program, "empty program")
	}
	if hasNUL(s.Program) {
		return invalidInput(op, s.Program, "nul byte found in program")
	}
	for i, a := range s.Args {
		if hasNUL(a) {
			return invalidInput(op, s.Program, "nul byte found in argument %d", i)
		}
	}
	if hasNUL(s.Dir) {
		return invalidInput(op, s.Program, "nul byte found in working directory")
	}
	if s.Env != nil {
		for _, n := range s.Env.names {
			if n == "" || strings.ContainsRune(n, '=') || hasNUL(n) {
				return invalidInput(op, s.Program, "invalid environment variable name %q", n)
			}
			if hasNUL(s.Env.vals[n]) {
				return invalidInput(op, s.Program, "nul byte found in environment variable %s", n)
			}
		}
	}
	for _, st := range []Stdio{s.Stdin, s.Stdout, s.Stderr} {
		if st.kind == stdioFd && st.fd < 0 {
			return invalidInput(op, s.Program, "negative file descriptor %d", st.fd)
		}
	}
	return nil
}

func hasNUL(s string) bool {
	return strings.IndexByte(s, 0) >= 0
}
