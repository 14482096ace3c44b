package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ChannelAnalyst/internal/domain"
	"ChannelAnalyst/internal/usecase"
)

const readyTimeout = 2 * time.Second

// Backfiller imports channel history.
type Backfiller interface {
	Backfill(ctx context.Context) (domain.BackfillResult, error)
}

// Pinger reports store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps lists the use cases exposed over HTTP. Nil entries disable their routes.
type Deps struct {
	Generator  usecase.Generator
	Backfiller Backfiller
	Pinger     Pinger
	Logger     *slog.Logger
}

// Server is the trigger and health surface.
type Server struct {
	echo   *echo.Echo
	addr   string
	deps   Deps
	logger *slog.Logger
}

// New builds the echo router.
func New(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, addr: addr, deps: deps, logger: logger}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogError:   true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				logger.Info("request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				logger.Error("request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/healthz", s.health)
	e.GET("/readyz", s.ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/reports/:period", s.generate)
	e.POST("/backfill", s.backfill)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ready(c echo.Context) error {
	if s.deps.Pinger == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
	defer cancel()

	if err := s.deps.Pinger.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) generate(c echo.Context) error {
	period, err := domain.ParsePeriod(c.Param("period"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, domain.Outcome{
			Period: domain.PeriodType(c.Param("period")),
			Status: domain.OutcomeFailed,
			Error:  err.Error(),
		})
	}
	if s.deps.Generator == nil {
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "report generation is not configured"})
	}

	out, err := s.deps.Generator.Generate(c.Request().Context(), period)
	return c.JSON(statusFor(err), out)
}

func (s *Server) backfill(c echo.Context) error {
	if s.deps.Backfiller == nil {
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "backfill is not configured"})
	}

	res, err := s.deps.Backfiller.Backfill(c.Request().Context())
	if err != nil {
		return c.JSON(statusFor(err), struct {
			domain.BackfillResult
			Error string `json:"error"`
		}{res, err.Error()})
	}
	return c.JSON(http.StatusOK, res)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
