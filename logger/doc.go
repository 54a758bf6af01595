// Package logger provides structured logging for failsafe components
// using zerolog.
//
// Components receive a *Logger through their options and fall back to the
// process-wide logger tagged with their component name.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("retry")
//	log.Warn("attempt failed", logger.Fields(logger.FieldOperationID, id, logger.FieldAttempt, n))
package logger
