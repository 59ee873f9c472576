package cmdlog

import (
	"time"

	"animerec/internal/logging"
	"animerec/internal/metrics"
)

// Run executes a CLI command body, counting and logging its outcome.
func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	start := time.Now()
	err := f()
	if err != nil {
		metrics.IncCommandError(cmd)
		logging.Error(cmd+"_error", map[string]any{"error": err.Error(), "elapsed_ms": time.Since(start).Milliseconds()})
	} else {
		logging.Info(cmd+"_ok", map[string]any{"elapsed_ms": time.Since(start).Milliseconds()})
	}
	return err
}
