// Package logger builds the process-wide *slog.Logger.
//
// NewFromConfig reads LOG_LEVEL, LOG_FORMAT and APP_ENV. Request-scoped
// values reach every record through ContextExtractor functions, so handlers
// just log with the request context:
//
//	log, err := logger.NewFromConfig(cfg.Log, "trainkit",
//		logger.WithContextExtractors(
//			requestid.LoggerExtractor(),
//			tenant.LoggerExtractor(),
//			guard.LoggerExtractor(),
//		),
//	)
//
// attr.go holds constructors for the attribute keys used across the code
// base so that field names stay consistent in the log pipeline.
package logger
