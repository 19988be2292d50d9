package logger

import "time"

// LogAction logs the outcome of evaluating one candidate
func LogAction(l Logger, kind, handle, signal string, acted bool, err error) {
	fields := map[string]interface{}{
		"kind":      kind,
		"candidate": handle,
		"signal":    signal,
		"acted":     acted,
	}

	entry := l.WithFields(fields)
	switch {
	case err != nil:
		entry.WithError(err).Warn("Candidate failed")
	case acted:
		entry.Info("Action confirmed")
	default:
		entry.Debug("Candidate skipped")
	}
}

// LogPass logs a finished reconciliation pass
func LogPass(l Logger, kind, state string, budget, actions, failed, skipped int, elapsed time.Duration) {
	l.InfoWithFields("Pass finished", map[string]interface{}{
		"kind":     kind,
		"state":    state,
		"budget":   budget,
		"actions":  actions,
		"failed":   failed,
		"skipped":  skipped,
		"duration": elapsed,
	})
}

// LogComponentStart logs when a long-running component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(settings) > 0 {
		entry = entry.WithFields(settings)
	}
	entry.Info("Component started")
}

// LogComponentStop logs when a long-running component stops
func LogComponentStop(l Logger, component, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}
