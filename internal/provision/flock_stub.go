//go:build !linux

package provision

import "os"

// Advisory locking is best-effort off Linux; the in-process mutex
// still serializes writers within one daemon.
func lockFile(*os.File) error   { return nil }
func unlockFile(*os.File) error { return nil }
