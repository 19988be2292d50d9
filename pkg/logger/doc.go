// Package logger provides the structured logging interface used across igfollow.
//
// It wraps zerolog with a small Logger interface so components can take a
// logger in their constructor and tests can swap in a TestLogger:
//
//	log, err := logger.New(&cfg.Logging)
//	log = log.WithField("run_id", runID)
//	log.InfoWithFields("Budget computed", map[string]interface{}{
//	    "kind":   "unfollow",
//	    "budget": 3,
//	})
//
// Console output is colored and written to stderr. When a log file is
// configured, lines are also appended to it as JSON.
package logger
