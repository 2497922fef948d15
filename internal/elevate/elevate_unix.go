//go:build !windows

package elevate

import "golang.org/x/sys/unix"

// Check reports whether the effective user is root, the privilege level
// the packet driver's BPF-style interception API requires on Unix.
func Check() error {
	if unix.Geteuid() != 0 {
		return ErrNotElevated
	}
	return nil
}
