// Package httpserver runs an http.Handler with configurable timeouts and
// graceful shutdown, and provides HealthCheckHandler for liveness and
// readiness probes.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Run returns once ctx is cancelled, SIGINT or SIGTERM is received, or
// Shutdown is called. Start failures wrap ErrStart and shutdown failures wrap
// ErrShutdown.
package httpserver
