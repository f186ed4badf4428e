// Package handlers contains health checks and reusable middleware
// for the HTTP API.
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("postgres", handlers.NewDatabaseCheck(conn))
//	checker.AddOptionalCheck("redis", handlers.NewCacheCheck(cache))
//
//	status := checker.Check(ctx)
//
// A failed optional check marks the service unhealthy but still ready.
//
// # Middleware
//
//	handler := handlers.ChainHandler(
//	    router,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.RequestSizeLimitMiddleware(64<<10),
//	)
package handlers
