// Package http provides the HTTP server of the page service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/xiaot623/pagesmith/internal/bridge"
	"github.com/xiaot623/pagesmith/internal/observability"
	"github.com/xiaot623/pagesmith/internal/service"
	"github.com/xiaot623/pagesmith/internal/transport/http/api"
)

// Deps are the components served over HTTP. Metrics may be nil.
type Deps struct {
	Service   *service.Service
	Channel   *bridge.Channel
	Hub       *bridge.Hub
	Metrics   *observability.Collector
	Logger    *zap.Logger
	BodyLimit string
	Version   string
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps) *echo.Echo {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewRequestValidator()

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogMethod:   true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				logger.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if deps.BodyLimit != "" {
		e.Use(middleware.BodyLimit(deps.BodyLimit))
	}

	// Handlers
	h := api.NewHandler(deps.Service, deps.Channel, deps.Hub, logger, deps.Version)
	h.RegisterRoutes(e)
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	return e
}
