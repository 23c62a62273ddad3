//go:build !(linux && (amd64 || arm64))

package spawn

import "syscall"

const forkSupported = false

func spawnFork(p *prepared, _ ChildPipes, _ SignalReset) (*Process, error) {
	return nil, &Error{Op: "spawn", Program: p.program, Kind: KindOS, Errno: syscall.ENOSYS,
		Msg: "fork strategy not available on this platform"}
}
