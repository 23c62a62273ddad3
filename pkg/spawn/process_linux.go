package spawn

import (
	"errors"

	"golang.org/x/sys/unix"
)

// blockUntilWaitable waits for pid to exit without reaping it.
func blockUntilWaitable(pid int) error {
	var info unix.Siginfo
	for {
		err := unix.Waitid(unix.P_PID, pid, &info, unix.WEXITED|unix.WNOWAIT, nil)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
