// Package httpapi wires the HTTP transport (Gin) to the application
// services, middleware and route handlers. Cross-cutting concerns live here:
// tracing, correlation IDs, redacted logging, panic recovery, metrics, rate
// limiting, CORS, security headers and compression of dashboard views.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/go-wellbeing-backend/docs" // swagger spec registration
	"github.com/tbourn/go-wellbeing-backend/internal/config"
	"github.com/tbourn/go-wellbeing-backend/internal/http/handlers"
	"github.com/tbourn/go-wellbeing-backend/internal/http/middleware"
	"github.com/tbourn/go-wellbeing-backend/internal/line"
	"github.com/tbourn/go-wellbeing-backend/internal/services"
)

// Route paths shared by the router and the rate limiter skip list.
const (
	pathFormWebhook = "/api/forms/google"
	pathCallback    = "/callback"
	pathDailyPush   = "/tasks/daily_push"
)

// maxBodyBytes caps every request body; form submissions are a few KiB.
const maxBodyBytes = 1 << 20

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs, secrets masked, request logger on ctx
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per IP; signed webhooks are exempt)
//  8. CORS and security headers
//
// Shared-secret checks are route-level: the form webhook verifies inside the
// ingestor, the chat webhook verifies its signature, and task/admin routes
// use RequireSecret with the task token.
func RegisterRoutes(r *gin.Engine, cfg config.Config, svc *Services) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (shared secrets are masked by default)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per IP. LINE and the form relay deliver
	// from shared egress addresses and retry on 429, so they are exempt.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP()).
		Skip(pathCallback, pathFormWebhook)
	r.Use(rl.Handler())

	// 8) CORS posture for dashboard pages served from another origin
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "If-None-Match"},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Security headers; dashboard views relax no-store to revalidation.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	h := handlers.New(handlerDeps(cfg, svc))

	// Liveness/health
	r.GET("/healthz", h.Health)
	r.GET("/health", h.Health)

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Webhooks
	r.POST(pathFormWebhook, h.IngestForm)
	r.POST(pathCallback, h.Callback)

	// Tasks and operator routes (task token)
	requireTask := middleware.RequireSecret(middleware.HeaderTaskToken, cfg.TaskToken)
	r.POST(pathDailyPush, requireTask, h.DailyPush)
	admin := groupWithPrefix(r, cfg.AdminBasePath)
	admin.POST("/users", requireTask, h.RegisterUser)
	admin.GET("/responses/unresolved", requireTask, h.UnresolvedResponses)

	// Dashboard views (compressed)
	views := r.Group("", gzip.Gzip(gzip.DefaultCompression))
	{
		views.GET("/", h.Overview)
		views.GET("/user/:token", h.UserView)
		views.GET("/user/:token/history", h.UserHistory)
	}
}

// handlerDeps maps the wired services onto the handler contracts. Nil
// services leave their endpoints answering 503.
func handlerDeps(cfg config.Config, svc *Services) handlers.Deps {
	d := handlers.Deps{
		Parse: func(r *http.Request) ([]services.ChatEvent, error) {
			return line.ParseEvents(cfg.Line.ChannelSecret, r)
		},
	}
	if svc == nil {
		return d
	}
	if svc.Survey != nil {
		d.Forms = svc.Survey
		d.Orphans = svc.Survey
	}
	if svc.Onboarding != nil {
		d.Events = svc.Onboarding
	}
	if svc.Scheduler != nil {
		d.Daily = svc.Scheduler
	}
	if svc.Views != nil {
		d.Views = svc.Views
	}
	if svc.Identity != nil {
		d.Registry = svc.Identity
	}
	return d
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
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
