package spawn

import (
	"os"
	"strings"
)

// Env is an ordered environment with unique names. A Spec with a nil Env
// inherits the caller's environment unmodified; a non-nil Env replaces it.
//
// The zero Env is an empty environment, the same as EmptyEnv.
type Env struct {
	names []string
	vals  map[string]string

	// copied from the parent with PATH untouched: the child's PATH is ours.
	pathKept bool
}

// EmptyEnv returns an environment with no variables.
func EmptyEnv() *Env {
	return &Env{}
}

// InheritEnv returns a copy of the current process environment in os.Environ
// order. When a name repeats, the first occurrence wins, as with os.Getenv.
func InheritEnv() *Env {
	e := &Env{vals: make(map[string]string), pathKept: true}
	for _, kv := range os.Environ() {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		if _, dup := e.vals[name]; dup {
			continue
		}
		e.names = append(e.names, name)
		e.vals[name] = val
	}
	return e
}

// Set adds or replaces a variable. A replaced variable keeps its position.
func (e *Env) Set(name, value string) {
	if e.vals == nil {
		e.vals = make(map[string]string)
	}
	if _, ok := e.vals[name]; !ok {
		e.names = append(e.names, name)
	}
	e.vals[name] = value
	if name == "PATH" {
		e.pathKept = false
	}
}

// Unset removes a variable if present.
func (e *Env) Unset(name string) {
	if name == "PATH" {
		e.pathKept = false
	}
	if _, ok := e.vals[name]; !ok {
		return
	}
	delete(e.vals, name)
	for i, n := range e.names {
		if n == name {
			e.names = append(e.names[:i], e.names[i+1:]...)
			break
		}
	}
}

func (e *Env) Lookup(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e.vals[name]
	return v, ok
}

func (e *Env) Len() int {
	if e == nil {
		return 0
	}
	return len(e.names)
}

// Names returns the variable names in order.
func (e *Env) Names() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.names...)
}

// Environ renders the environment as NAME=value strings in order.
func (e *Env) Environ() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.names))
	for _, n := range e.names {
		out = append(out, n+"="+e.vals[n])
	}
	return out
}

// AffectsPath reports whether the environment was cleared or PATH was set or
// unset, so that the child's PATH may differ from the parent's.
func (e *Env) AffectsPath() bool {
	return e != nil && !e.pathKept
}

// Clone returns an independent copy. Cloning nil returns nil.
func (e *Env) Clone() *Env {
	if e == nil {
		return nil
	}
	c := &Env{
		names:    append([]string(nil), e.names...),
		vals:     make(map[string]string, len(e.vals)),
		pathKept: e.pathKept,
	}
	for k, v := range e.vals {
		c.vals[k] = v
	}
	return c
}
