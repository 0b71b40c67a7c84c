//go:build windows

package main

import (
	"os"
)

// Windows only delivers os.Interrupt (Ctrl+C); SIGTERM is never raised.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
