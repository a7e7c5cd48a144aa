package api

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/s3ui/bucketgate/docs"
	"github.com/s3ui/bucketgate/internal/api/handler"
	"github.com/s3ui/bucketgate/internal/api/middleware"
	"github.com/s3ui/bucketgate/internal/core/domain"
	"github.com/s3ui/bucketgate/internal/core/ports"
)

// Deps are the collaborators the router wires into handlers. Everything is
// built by the caller; the router owns no connections.
type Deps struct {
	Auth      ports.AuthService
	Storage   ports.StorageService
	Validator echo.Validator
	// Health probes keyed by dependency name, e.g. "mongodb", "redis".
	Health map[string]func(context.Context) error
	Log    zerolog.Logger

	StaticDir        string
	CORSAllowOrigins []string
	// BodyLimit uses echo's size syntax, e.g. "1M". Empty means 1M.
	BodyLimit string
	// Registerer receives the HTTP request metrics. Nil means the
	// prometheus default registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = d.Validator
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	bodyLimit := d.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "1M"
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: d.CORSAllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "bucketgate",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Operational routes (no auth required) ---
	health := handler.NewHealthHandler(d.Health)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", metricsHandler(d.Registerer))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- API routes ---
	authHandler := handler.NewAuthHandler(d.Auth)
	storageHandler := handler.NewStorageHandler(d.Storage)
	requireAccess := middleware.Auth(d.Auth, domain.TokenAccess)
	requireRefresh := middleware.Auth(d.Auth, domain.TokenRefresh)
	scoped := middleware.BucketScope("bucket")

	api := e.Group("/api")
	api.POST("/login", authHandler.Login)
	api.POST("/refresh", authHandler.Refresh, requireRefresh)
	api.POST("/change-password", authHandler.ChangePassword, requireAccess)

	api.GET("/list-files-folders/:bucket", storageHandler.ListFilesFolders, requireAccess, scoped)
	api.GET("/list-files-folders/:bucket/*", storageHandler.ListFilesFolders, requireAccess, scoped)
	api.POST("/get-presigned-urls/:bucket", storageHandler.GetPresignedURLs, requireAccess, scoped)
	api.POST("/get-presigned-urls/:bucket/", storageHandler.GetPresignedURLs, requireAccess, scoped)
	api.POST("/zip-files/:bucket", storageHandler.ZipFiles, requireAccess, scoped)
	api.POST("/zip-files/:bucket/", storageHandler.ZipFiles, requireAccess, scoped)

	// --- Single page app ---
	if d.StaticDir != "" {
		e.Static("/static", filepath.Join(d.StaticDir, "static"))
		index := filepath.Join(d.StaticDir, "index.html")
		e.GET("/", func(c echo.Context) error {
			return c.File(index)
		})
	}

	return e
}

// requestLogger writes one zerolog entry per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// metricsHandler exposes the default registry, or the given one when it is
// also a Gatherer.
func metricsHandler(reg prometheus.Registerer) echo.HandlerFunc {
	if g, ok := reg.(prometheus.Gatherer); ok {
		return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: g})
	}
	return echoprometheus.NewHandler()
}
