//go:build windows

package elevate

import "golang.org/x/sys/windows"

// Check reports whether the current process token is elevated, the
// privilege level WinDivert-style interception drivers require.
func Check() error {
	token := windows.GetCurrentProcessToken()
	if !token.IsElevated() {
		return ErrNotElevated
	}
	return nil
}
