//go:build !linux

package spawn

import "syscall"

// Exec is only implemented on Linux.
func (s *Spawner) Exec(spec *Spec) error {
	return &Error{Op: "exec", Program: spec.Program, Kind: KindOS, Errno: syscall.ENOSYS}
}
