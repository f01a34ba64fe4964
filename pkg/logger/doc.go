// Package logger builds *slog.Logger instances with a handler that copies
// request scoped values out of context.Context onto every record.
//
// Request identifiers and tenant names are the usual candidates:
//
//	log := logger.New(
//		logger.WithEnvironment("production", "api"),
//		logger.WithContextExtractors(
//			requestid.LoggerExtractor(),
//			tenant.LoggerExtractor(),
//		),
//	)
//	logger.SetAsDefault(log)
//
// Attribute helpers such as Error, Tenant, Target and Latency keep key names
// consistent across packages. Error and RequestID return an empty slog.Attr
// for zero input, which slog drops, so callers need no nil checks.
package logger
