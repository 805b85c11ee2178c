package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"orders/internal/pkg/metrics"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// RouterOptions configure the echo instance built by NewRouter.
type RouterOptions struct {
	// StoreTimeout bounds every order request; zero disables the bound.
	StoreTimeout time.Duration
	Registry     *prometheus.Registry
	Logger       *slog.Logger
}

// NewRouter builds the echo instance: order routes under /api/v1 validated
// against the OpenAPI document, plus /health, /metrics and /swagger/*.
func NewRouter(server *Server, options RouterOptions) (*echo.Echo, error) {
	doc, err := LoadOpenAPI()
	if err != nil {
		return nil, err
	}
	validator, err := RequestValidator(doc)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	serverMetrics := metrics.NewServerMetrics(options.Registry)
	e.Use(middleware.Recover())
	e.Use(observe(serverMetrics))
	e.Use(requestLogger(options.Logger))

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy")
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(options.Registry)))

	registerSwaggerDoc()
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1", validator, storeTimeout(options.StoreTimeout))
	server.Register(api)

	return e, nil
}

// storeTimeout bounds the request context, and with it every storage call the
// handlers make.
func storeTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func observe(m *metrics.ServerMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var httpErr *echo.HTTPError
				if errors.As(err, &httpErr) {
					status = httpErr.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.Observe(route, c.Request().Method, status, float64(time.Since(start).Microseconds())/1000)
			return err
		}
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	logger = logger.With("component", "HTTP")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError || v.Error != nil {
				level = slog.LevelError
			}
			logger.LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}
