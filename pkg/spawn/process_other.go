//go:build !linux

package spawn

// blockUntilWaitable is not available here; Wait blocks in wait4 under the
// lock instead.
func blockUntilWaitable(pid int) error {
	return nil
}
