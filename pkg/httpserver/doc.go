// Package httpserver runs the HTTP listener with graceful shutdown and
// serves the liveness and readiness probes.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// Run blocks until ctx is cancelled, then drains in-flight requests for at
// most ShutdownTimeout and runs the stop hooks.
package httpserver
