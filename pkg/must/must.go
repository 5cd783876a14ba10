// Package must holds small best-effort-cleanup wrappers: operations whose
// error is worth logging but never worth propagating, because they run in
// a defer or a best-effort teardown path where there's nothing more useful
// to do with the failure. Trimmed from the teacher's larger set down to the
// handful this repo's defer-based cleanup and housekeeping paths actually
// call; the net/protobuf-specific helpers (Serve, ProtoEncode, Signal,
// Terminate, Kill, CloseWrite) are dropped since there's no daemon process
// or RPC layer for them to clean up after.
package must

import (
	"fmt"
	"io"
	"os"

	"github.com/rojosync/rojo/pkg/logging"
)

// Close closes c, warning on error. Used in defers where the write path
// already reported any error that matters.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warn(fmt.Errorf("close: %w", err))
	}
}

// OSRemove removes name, warning on error.
func OSRemove(name string, logger *logging.Logger) {
	if err := os.Remove(name); err != nil {
		logger.Warn(fmt.Errorf("remove %q: %w", name, err))
	}
}

// Succeed warns with task as context if err is non-nil. Used where the
// caller already has an error value in hand (e.g. from os.RemoveAll)
// rather than an operation to invoke itself.
func Succeed(err error, task string, logger *logging.Logger) {
	if err != nil {
		logger.Warn(fmt.Errorf("%s: %w", task, err))
	}
}
