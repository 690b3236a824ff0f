package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"Outreach/backend/go/internal/config"
	"Outreach/backend/go/pkg/circuitbreaker"
	"Outreach/backend/go/pkg/httpmiddleware"
	"Outreach/backend/go/pkg/logger"
	"Outreach/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// idleClientTTL 超过该时间未出现的客户端会被限流器遗忘。
const idleClientTTL = 10 * time.Minute

// Server wraps http.Server around a gin engine that already carries the
// configured rate limiting and circuit breaking middleware.
type Server struct {
	httpServer      *http.Server
	engine          *gin.Engine
	shutdownTimeout time.Duration
	log             *logger.Logger
}

// ServerOption defines a function for configuring a Server.
type ServerOption func(*Server)

// WithAddress sets the address for the server to listen on.
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// WithLogger attaches a logger used for lifecycle and request logs.
func WithLogger(l *logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer builds a Server from cfg. Routes are registered on Engine()
// after construction so that they sit behind the middleware.
func NewServer(cfg *config.AppConfig, opts ...ServerOption) (*Server, error) {
	engine := gin.New()

	srv := &Server{
		httpServer: &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		engine:          engine,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		log:             logger.Discard(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = ":8080"
	}
	if srv.shutdownTimeout <= 0 {
		srv.shutdownTimeout = 15 * time.Second
	}

	engine.Use(gin.Recovery(), httpmiddleware.RequestLogger(srv.log))

	if cfg.Middleware.RateLimiter.Enabled {
		limiter, err := createRateLimiter(cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		srv.log.WithField("algorithm", cfg.Middleware.RateLimiter.Algorithm).Info("Enabling Rate Limiter middleware")
		engine.Use(httpmiddleware.RateLimit(limiter, httpmiddleware.ClientIP))
	}

	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := createCircuitBreaker(cfg.Middleware.CircuitBreaker, srv.log)
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		srv.log.Info("Enabling Circuit Breaker middleware")
		engine.Use(httpmiddleware.CircuitBreak(breaker))
	}

	return srv, nil
}

// Engine returns the gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log.WithField("address", s.httpServer.Addr).Info("Starting HTTP server")
	return s.httpServer.ListenAndServe()
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.log.Info("Shutting down HTTP server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return <-errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// createRateLimiter 根据配置创建限流器；perClient 时每个客户端 IP 一个桶。
func createRateLimiter(cfg config.RateLimiterConfig) (ratelimiter.KeyedLimiter, error) {
	settings := ratelimiter.Settings{
		Algorithm: cfg.Algorithm,
		Rate:      cfg.TokenBucket.Rate,
		Capacity:  cfg.TokenBucket.Capacity,
		Limit:     cfg.FixedWindow.Limit,
	}
	if cfg.Algorithm == ratelimiter.AlgorithmFixedWindow {
		window, err := time.ParseDuration(cfg.FixedWindow.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid fixedWindow duration: %w", err)
		}
		settings.Window = window
	}

	factory, err := ratelimiter.NewFactory(settings)
	if err != nil {
		return nil, err
	}
	if cfg.PerClient {
		return ratelimiter.NewPerKey(factory, idleClientTTL), nil
	}
	return ratelimiter.Shared{RateLimiter: factory()}, nil
}

// createCircuitBreaker initializes a circuit breaker based on the configuration.
func createCircuitBreaker(cfg config.CircuitBreakerConfig, log *logger.Logger) (circuitbreaker.CircuitBreaker, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	return circuitbreaker.New(cfg.FailureThreshold, cfg.SuccessThreshold, timeout,
		circuitbreaker.WithStateChange(func(from, to circuitbreaker.State) {
			log.WithPayload(map[string]interface{}{"from": from.String(), "to": to.String()}).Warn("Circuit breaker state changed")
		}),
	), nil
}
