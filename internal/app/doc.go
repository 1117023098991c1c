// Package app wires the coverage web service together and manages its lifecycle.
//
// New resolves and creates the data, reports and logs directories, initializes
// OpenTelemetry, builds the coverage and health services and mounts them on a
// chi router behind the middleware stack:
//
//	RequestID → RealIP → OTel → StructuredLogger → Recoverer → SecurityHeaders → CORS → RateLimiter
//
// Typical use from a main package:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Run blocks until the context is cancelled or SIGINT/SIGTERM arrives and then
// shuts the server down within Server.ShutdownTimeout, flushing telemetry last.
// Nothing in this package calls os.Exit.
package app
