package spawn

import (
	"os"
	"strings"
	"syscall"
)

// Candidates returns the paths an exec of program tries, in order, or false
// when no search happens and program is used literally.
//
// A program containing a slash is never searched. With a non-nil env only
// env's PATH is consulted: an override without PATH means no search, not a
// fallback to the parent's PATH. With a nil env the parent's PATH is used.
//
// Every segment yields "<dir>/<program>" verbatim. An empty segment therefore
// produces "/<program>" and does not stand for the current directory.
func Candidates(program string, env *Env) ([]string, bool) {
	if strings.Contains(program, "/") {
		return nil, false
	}

	var path string
	var ok bool
	if env != nil {
		path, ok = env.Lookup("PATH")
	} else {
		path, ok = os.LookupEnv("PATH")
	}
	if !ok {
		return nil, false
	}

	dirs := strings.Split(path, ":")
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		out = append(out, dir+"/"+program)
	}
	return out, true
}

type searchStep int

const (
	searchNext  searchStep = iota // try the next candidate
	searchDefer                   // remember the error, try the next candidate
	searchFail                    // give up with this error
)

// classifyExecErrno decides what a failed exec of one candidate means for the
// rest of the search. It is shared by both strategies and called from the
// forked child, hence nosplit.
//
//go:nosplit
func classifyExecErrno(errno syscall.Errno) searchStep {
	switch errno {
	case syscall.EACCES, syscall.EPERM:
		return searchDefer
	case syscall.ENOENT, syscall.ETIMEDOUT:
		return searchNext
	}
	return searchFail
}

// search execs the candidates of p (or the literal program) through try and
// returns 0 on the first success, or the error that ends the search.
func search(p *prepared, try func(path string) syscall.Errno) syscall.Errno {
	if !p.searched {
		return try(p.program)
	}
	var pending syscall.Errno
	for _, path := range p.candidates {
		errno := try(path)
		if errno == 0 {
			return 0
		}
		switch classifyExecErrno(errno) {
		case searchDefer:
			if pending == 0 {
				pending = errno
			}
		case searchNext:
		default:
			return errno
		}
	}
	if pending != 0 {
		return pending
	}
	return syscall.ENOENT
}
