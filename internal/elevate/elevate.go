// Package elevate checks that the host process runs with the privilege
// level the packet-interception driver requires (spec §6/§7): launching
// without it is a fatal configuration error reported at startup.
package elevate

import "errors"

// ErrNotElevated is returned by Check when the current process lacks the
// privilege level the packet driver requires.
var ErrNotElevated = errors.New("elevate: process is not running with administrator/root privileges")
