package spawn

import "fmt"

// Hook is a pre-exec step run in the forked child. Go code cannot run
// between fork and exec: the runtime forbids stack growth and allocation
// there. A Hook is therefore a single raw system call prepared in the
// parent, and a non-zero errno from it aborts the spawn with that error.
//
// Memory that a Hook's arguments point to is kept alive by the Hook itself.
type Hook struct {
	name string
	trap uintptr
	args [6]uintptr
	keep any
}

// Syscall returns a Hook invoking trap with up to six raw arguments. Pointer
// arguments must refer to memory the caller keeps alive until the spawn
// returns.
func Syscall(name string, trap uintptr, args ...uintptr) Hook {
	if len(args) > 6 {
		panic(fmt.Sprintf("spawn: hook %s: %d arguments, at most 6", name, len(args)))
	}
	h := Hook{name: name, trap: trap}
	copy(h.args[:], args)
	return h
}

func (h Hook) String() string {
	return h.name
}
