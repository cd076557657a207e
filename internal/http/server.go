package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/eryxon/uns-gateway/internal/config"
	"github.com/eryxon/uns-gateway/internal/dispatcher"
	"github.com/eryxon/uns-gateway/internal/http/middleware"
	"github.com/eryxon/uns-gateway/internal/logger"
	"github.com/eryxon/uns-gateway/internal/metrics"
	"github.com/eryxon/uns-gateway/internal/repository"
	"github.com/eryxon/uns-gateway/internal/transport"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	tenantsRepo := repository.NewTenantsRepository(mysqlDB)
	brokersRepo := repository.NewBrokersRepository(mysqlDB)

	// repos (ClickHouse)
	attemptsRepo := repository.NewAttemptsRepository(clickhouseDB)

	// dispatch pipeline
	adapter := transport.NewAdapter(cfg.Publish.CandidateTimeout)
	recorder := dispatcher.NewRecorder(attemptsRepo, brokersRepo, logger.Log)
	coordinator := dispatcher.NewCoordinator(brokersRepo, adapter, recorder, logger.Log, cfg.Publish.BrokerTimeout)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(tenantsRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:tenant:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/events/publish", publishEventHandler(coordinator))
	v1.GET("/reports/attempts", listAttemptsHandler(attemptsRepo))
	v1.GET("/brokers/:id/health", brokerHealthHandler(brokersRepo, attemptsRepo, cfg.Publish.HealthWindow))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
