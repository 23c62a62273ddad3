package spawn

import (
	"runtime"

	"golang.org/x/sys/unix"
)

const (
	_SIG_BLOCK   = 0
	_SIG_SETMASK = 2
)

// signalsBlocked reports whether the current thread blocks any signal. Every
// runtime thread starts from the mask the process was started with.
func signalsBlocked() (bool, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var cur unix.Sigset_t
	if err := unix.PthreadSigmask(_SIG_BLOCK, nil, &cur); err != nil {
		return false, err
	}
	for _, w := range cur.Val {
		if w != 0 {
			return true, nil
		}
	}
	return false, nil
}
