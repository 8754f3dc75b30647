// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"clinicdesk-service/internal/config"
	"clinicdesk-service/internal/db"
	"clinicdesk-service/internal/domain/notification"
	notifyHandler "clinicdesk-service/internal/handlers/notification"
	wsHandler "clinicdesk-service/internal/handlers/websocket"
	"clinicdesk-service/internal/middleware"
	"clinicdesk-service/internal/pkg/ratelimit"
	"clinicdesk-service/internal/service/email"
	"clinicdesk-service/internal/service/featureflag"
	notifyUsecase "clinicdesk-service/internal/service/notification"
	"clinicdesk-service/internal/websocket"
	wsHandlers "clinicdesk-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	cfg        config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	httpServer *http.Server

	redisClient   redis.UniversalClient
	notifications *notifyUsecase.NotificationService
	hub           *websocket.Hub
}

// NewServer wires every component. Nothing is started until Run.
func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	s := &Server{cfg: cfg, logger: logger}

	// ----- Feature flags -----
	defaults := featureflag.NewStaticGate(cfg.FeatureFlags...)
	var features featureflag.Toggle = defaults
	if len(cfg.RedisAddrs) > 0 {
		redisClient, err := db.NewRedis(db.RedisConfig{
			ClusterMode: cfg.RedisCluster,
			Addresses:   cfg.RedisAddrs,
			Password:    cfg.RedisPass,
			PoolSize:    10,
		})
		if err != nil {
			logger.Warn("redis unavailable, using static feature flags", zap.Error(err))
		} else {
			logger.Info("redis connected", zap.Strings("addrs", cfg.RedisAddrs))
			s.redisClient = redisClient
			features = featureflag.NewRedisGate(redisClient, defaults, cfg.FeatureFlagCacheTTL, logger)
		}
	}

	// ----- Rate limiting -----
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(int64(cfg.EventRateLimit), cfg.EventRateWindow)
	if s.redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(s.redisClient, int64(cfg.EventRateLimit), cfg.EventRateWindow)
	}

	// ----- Metrics -----
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// ----- Email -----
	var transport email.Transport
	transportName := "simulated"
	if cfg.SMTPHost != "" {
		transportName = "smtp"
		transport = email.NewSMTPSender(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPass,
			cfg.SMTPFromName,
			cfg.SMTPSecure,
		)
	} else {
		transport = email.NewSimulatedTransport(cfg.EmailSimulatedDelay, logger)
	}
	transport = email.NewMetricsTransport(transportName, transport, registry)
	gateway := email.NewGateway(transport, email.NewRenderer(cfg.AppBaseURL), logger)

	// ----- Notifications -----
	s.notifications = notifyUsecase.NewNotificationService(features, gateway, logger,
		notifyUsecase.WithHistoryLimit(cfg.HistoryLimit),
		notifyUsecase.WithSweepInterval(cfg.SweepInterval),
		notifyUsecase.WithBroadcastRecipients(cfg.BroadcastRecipients),
	)

	// ----- WebSocket Hub -----
	s.hub = websocket.NewHub(gateway, logger)
	s.hub.RegisterHandler(wsHandlers.NewNotificationHandler(s.notifications))
	s.notifications.AddListener(func(n *notification.Notification) {
		s.hub.BroadcastNotification(n, s.notifications.GetUnreadCount())
	})

	// ----- Handlers -----
	handlers := &Handlers{
		NotifHandler: notifyHandler.NewNotificationHandler(s.notifications, gateway, features, s.hub, logger),
		WSHandler:    wsHandler.NewWebSocketHandler(s.hub, logger, cfg.CORSOrigins...),
		Metrics:      registry,
		EventLimit:   middleware.RateLimitMiddleware(limiter, logger),
	}

	// ----- Router -----
	s.engine = gin.New()
	// ClientIP only honours forwarding headers from these proxies
	if err := s.engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn("invalid TRUSTED_PROXIES, trusting none", zap.Error(err))
		_ = s.engine.SetTrustedProxies(nil)
	}
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.UserIDMiddleware(),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(cfg.CORSOrigins...),
	)
	SetupRouter(s.engine, logger, handlers)

	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Notifications exposes the notification service.
func (s *Server) Notifications() *notifyUsecase.NotificationService {
	return s.notifications
}

// Run serves HTTP and runs the hub and the pending email sweep until ctx is
// cancelled, then shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.notifications.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	// flush whatever is queued for users that already went offline
	s.notifications.CheckPendingDeliveries(ctx)
	if err := s.notifications.WaitContext(ctx); err != nil {
		s.logger.Warn("emails still in flight at shutdown", zap.Error(err))
		errs = append(errs, fmt.Errorf("email drain: %w", err))
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	s.logger.Info("server stopped")
	return errors.Join(errs...)
}
