// Package spawn launches child processes from a fully resolved Spec.
//
// Two strategies are available and produce the same observable outcome:
//
//   - fast: a single syscall.ForkExec, used when the Spec needs nothing the
//     Go runtime cannot already express (no working directory or credential
//     override, no PATH override, no hooks) and the host is known to report a
//     missing program as a direct failure.
//   - fork: a raw fork followed by an allocation-free setup sequence in the
//     child. Failures between fork and exec are carried back to the parent
//     over a close-on-exec pipe as an 8-byte message (big-endian errno
//     followed by the marker "NOEX"). End of stream means exec succeeded.
//
// The fork strategy is only compiled in on linux/amd64 and linux/arm64.
// Elsewhere every spawn takes the fast path and Specs that need hooks fail
// with an error matching errors.ErrUnsupported.
//
// Bare program names are searched along PATH by this package rather than by
// the facility: the override environment's PATH when the Spec carries one,
// the parent's PATH otherwise. EACCES on a candidate is remembered and the
// search goes on; ENOENT moves to the next directory.
package spawn
