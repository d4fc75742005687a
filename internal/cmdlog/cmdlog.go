package cmdlog

import (
	"promptpulse/internal/logging"
	"promptpulse/internal/metrics"
)

// Run wraps a CLI command with run/error metrics and a log line.
func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	err := f()
	if err != nil {
		metrics.IncCommandError(cmd)
		logging.Error(cmd+"_error", map[string]any{"error": err.Error()})
	} else {
		logging.Info(cmd+"_ok", nil)
	}
	return err
}
