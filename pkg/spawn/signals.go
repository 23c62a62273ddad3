package spawn

import (
	"os/signal"
	"syscall"
)

// SignalReset is the signal state a child must start with. The parent's
// blocked mask and ignored dispositions survive exec, and most programs never
// reset them, so the spawner puts them back to a standard state.
type SignalReset struct {
	// ClearMask empties the blocked signal mask.
	ClearMask bool
	// Defaults are restored to SIG_DFL.
	Defaults []syscall.Signal
}

// DefaultSignalReset clears the mask and restores SIGPIPE, which shells and
// supervisors commonly leave ignored.
func DefaultSignalReset() SignalReset {
	return SignalReset{ClearMask: true, Defaults: []syscall.Signal{syscall.SIGPIPE}}
}

// satisfiedByRuntime reports whether a syscall.ForkExec child already starts
// in the state r asks for. The runtime resets the handlers it installed but
// keeps ignored signals ignored and restores the startup mask, so that holds
// only when no listed signal is ignored and nothing is blocked.
func (r SignalReset) satisfiedByRuntime() bool {
	for _, sig := range r.Defaults {
		if signal.Ignored(sig) {
			return false
		}
	}
	if r.ClearMask {
		blocked, err := signalsBlocked()
		if err != nil || blocked {
			return false
		}
	}
	return true
}
