// Package httpapi wires the HTTP transport (Gin) to the tracker services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic router setup; all dependencies injected through App
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-shipment-tracker/internal/config"
	"github.com/tbourn/go-shipment-tracker/internal/http/handlers"
	"github.com/tbourn/go-shipment-tracker/internal/http/middleware"
)

const (
	metricsPath = "/metrics"
	swaggerPath = "/swagger/"
)

var (
	corsMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	corsExpose  = []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", handlers.HeaderIdempotencyReplayed}
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the dashboard API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with phone/email scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip (scrape endpoint excluded)
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per operator/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, app *App, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{metricsPath})))

	r.Use(middleware.Metrics(metricsPath))
	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, actor, clientID, key string, now time.Time) (bool, error) {
			_, found, err := app.idem.Lookup(ctx, actor, clientID, key, now)
			return found, err
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByActor())
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:        cfg.Security.EnableHSTS,
		HSTSMaxAge:        cfg.Security.HSTSMaxAge,
		EnablePolicy:      true,
		CSP:               middleware.APIContentSecurityPolicy,
		CSPExemptPrefixes: []string{swaggerPath},
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": app.Tracker.Version()})
	})

	if cfg.SwaggerEnabled {
		r.GET(swaggerPath+"*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(app.Tracker, app.Settings, app.logs, app.idem)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Clients
		api.GET("/clients", h.ListClients)
		api.POST("/clients", h.CreateClient)
		api.GET("/clients/:id", h.GetClient)
		api.PUT("/clients/:id", h.UpdateClient)
		api.DELETE("/clients/:id", h.DeleteClient)

		// Orders
		api.POST("/clients/:id/orders", h.CreateOrder)
		api.GET("/clients/:id/orders/:orderId", h.GetOrder)
		api.PUT("/clients/:id/orders/:orderId", h.UpdateOrder)
		api.DELETE("/clients/:id/orders/:orderId", h.DeleteOrder)
		api.PATCH("/clients/:id/orders/:orderId/status", h.AdvanceStatus)

		// Notifications
		api.POST("/clients/:id/orders/:orderId/notify", h.ResendNotification)
		api.GET("/notifications", h.ListNotifications)

		// Settings
		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.UpdateSettings)

		// Catalog and dashboard counters
		api.GET("/statuses", h.ListStatuses)
		api.GET("/stats", h.GetStats)
	}
}

// corsMiddleware returns the CORS chain. With no allowlist every origin is
// accepted and ACAO is forced even without an Origin header; otherwise an
// allowed Origin is echoed back.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	if len(origins) == 0 {
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins: true,
				AllowMethods:    corsMethods,
				AllowHeaders:    corsHeaders,
				ExposeHeaders:   corsExpose,
				MaxAge:          12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  corsMethods,
			AllowHeaders:  corsHeaders,
			ExposeHeaders: corsExpose,
			MaxAge:        12 * time.Hour,
		}),
	}
}

// limitBody caps the request body at maxBytes using http.MaxBytesReader.
// Requests exceeding the cap cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
