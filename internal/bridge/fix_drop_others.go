//go:build !windows

package bridge

import "github.com/rs/zerolog"

// FixWindowsDropPermissions is a no-op outside Windows.
func FixWindowsDropPermissions(log zerolog.Logger) {}
