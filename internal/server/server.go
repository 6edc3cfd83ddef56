// Package server wires the clover components into an echo HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/handlers"
	"github.com/Ramsey-B/clover/pkg/backend"
	"github.com/Ramsey-B/clover/pkg/community"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/expressions"
	"github.com/Ramsey-B/clover/pkg/health"
	"github.com/Ramsey-B/clover/pkg/hivemind"
	"github.com/Ramsey-B/clover/pkg/httpclient"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/notify"
	"github.com/Ramsey-B/clover/pkg/platforms"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/session"
	"github.com/Ramsey-B/clover/pkg/settings"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	cfg     *config.Config
	logger  ectologger.Logger
	startup *startup.Startup
	health  *health.Checker

	echo      *echo.Echo
	http      *http.Server
	provider  *tracing.Provider
	redis     *redis.Client
	sessions  session.Store
	publisher events.Publisher
	producer  *events.Producer
	verifier  middleware.TokenVerifier
	names     *community.NameEditor
}

func New(cfg *config.Config, logger ectologger.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		startup:   startup.NewStartup(logger, cfg.StartupMaxAttempts),
		health:    health.NewChecker(cfg.Version),
		publisher: events.NoopPublisher{},
	}

	s.startup.AddDependency(&startup.Func{Name: "tracing", OnStart: s.startTracing, OnStop: s.stopTracing})
	s.startup.AddDependency(&startup.Func{Name: "sessions", OnStart: s.startSessions, OnStop: s.stopSessions})
	s.startup.AddDependency(&startup.Func{Name: "events", OnStart: s.startEvents, OnStop: s.stopEvents})
	s.startup.AddDependency(&startup.Func{Name: "auth", OnStart: s.startAuth})
	s.startup.AddDependency(&startup.Func{
		Name:     "api",
		Requires: []string{"tracing", "sessions", "events", "auth"},
		OnStart:  s.startAPI,
		OnStop:   s.stopAPI,
	})

	return s
}

// Start brings up every dependency and builds the router
func (s *Server) Start(ctx context.Context) error {
	if err := s.startup.Start(ctx); err != nil {
		return err
	}
	s.health.SetReady(true)
	return nil
}

// Stop flushes pending work and releases the dependencies in reverse order
func (s *Server) Stop(ctx context.Context) error {
	s.health.SetReady(false)
	return s.startup.Stop(ctx)
}

// Run starts every dependency, serves until ctx is cancelled and then shuts down
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("%s listening on %s", s.cfg.AppName, s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.health.SetReady(false)
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("failed to shut down http server")
	}
	if err := s.Stop(shutdownCtx); err != nil {
		return err
	}
	return serveErr
}

// Handler exposes the router once the dependencies are started
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) startTracing(ctx context.Context) error {
	provider, err := tracing.NewProvider(ctx, tracing.ProviderConfig{
		ServiceName: s.cfg.AppName,
		Version:     s.cfg.Version,
		Enabled:     s.cfg.OTLPEnabled,
		OTLP: exporters.OTLPConfig{
			Endpoint: s.cfg.OTLPEndpoint,
			Protocol: s.cfg.OTLPProtocol,
			Insecure: s.cfg.OTLPInsecure,
		},
	})
	if err != nil {
		return err
	}
	s.provider = provider
	return nil
}

func (s *Server) stopTracing(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	return s.provider.Shutdown(ctx)
}

func (s *Server) startSessions(ctx context.Context) error {
	if s.cfg.SessionStore == "memory" {
		s.logger.Warn("using in-memory session store, sessions are lost on restart")
		s.sessions = session.NewMemoryStore(s.cfg.SessionTTL)
		return nil
	}

	client, err := redis.NewClient(ctx, redis.Config{
		Host:     s.cfg.RedisHost,
		Port:     s.cfg.RedisPort,
		Password: s.cfg.RedisPassword,
		DB:       s.cfg.RedisDB,
	}, s.logger)
	if err != nil {
		return err
	}
	s.redis = client
	s.sessions = session.NewRedisStore(client, s.cfg.SessionTTL, s.logger)
	s.health.AddCheck("redis", health.PingProbe(client))
	return nil
}

func (s *Server) stopSessions(context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}

func (s *Server) startEvents(context.Context) error {
	if !s.cfg.KafkaEnabled {
		s.logger.Info("settings change events are disabled")
		return nil
	}
	s.producer = events.NewProducer(events.ParseConfig(s.cfg.KafkaBrokers, s.cfg.KafkaSettingsTopic), s.logger)
	s.publisher = s.producer
	return nil
}

func (s *Server) stopEvents(context.Context) error {
	if s.producer == nil {
		return nil
	}
	return s.producer.Close()
}

func (s *Server) startAuth(ctx context.Context) error {
	if !s.cfg.AuthEnabled {
		s.logger.Warn("authentication is disabled, trusting the X-User-ID header")
		return nil
	}
	verifier, err := middleware.NewOIDCVerifier(ctx, s.cfg.AuthIssuerURL, s.cfg.AuthClientID)
	if err != nil {
		return fmt.Errorf("failed to set up OIDC verifier: %w", err)
	}
	s.verifier = verifier
	return nil
}

func (s *Server) startAPI(context.Context) error {
	cfg := s.cfg
	logger := s.logger

	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.BackendTimeout
	clientCfg.MaxRetries = cfg.BackendMaxRetries
	api := backend.NewClient(cfg.BackendBaseURL, httpclient.NewClient(clientCfg, logger), logger)

	// probes bypass the breaker so they report the backend as it is
	probeCfg := clientCfg
	probeCfg.BreakerDelay = 0
	s.health.AddSoftCheck("backend", health.HTTPProbe(httpclient.NewClient(probeCfg, logger), cfg.BackendBaseURL))

	notifier := notify.NewNotifier(notify.DefaultCapacity, logger)
	displayer := platforms.NewDisplayer(expressions.NewEvaluator(), cfg.DiscordCDN, logger)

	manager := settings.NewManager(settings.Dependencies{
		Backend:       api,
		Sessions:      s.sessions,
		Builder:       hivemind.NewRegistry(),
		Displayer:     displayer,
		Notifier:      notifier,
		Publisher:     s.publisher,
		Logger:        logger,
		GDriveEnabled: cfg.HivemindGDriveEnabled,
	})
	s.names = community.NewNameEditor(api, s.sessions, notifier, s.publisher, cfg.CommunityNameDebounce, logger)
	dialogs := community.NewDeleteDialogs(api, s.sessions, notifier, s.publisher, logger)
	active := community.NewActiveCommunity(api, s.sessions, displayer, logger)
	modules := community.NewModuleManager(api, s.sessions, notifier, s.publisher, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	s.health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g := e.Group("/api/v1")
	if s.verifier != nil {
		g.Use(middleware.Authentication(logger, s.verifier))
	}
	g.Use(middleware.RequireUser())

	handlers.NewRegistryHandler(cfg.HivemindGDriveEnabled).RegisterRoutes(g)
	handlers.NewSessionHandler(active, s.names, dialogs, manager).RegisterRoutes(g)
	handlers.NewHivemindHandler(manager).RegisterRoutes(g)
	handlers.NewCommunityHandler(s.names, dialogs, manager).RegisterRoutes(g)
	handlers.NewModuleHandler(modules).RegisterRoutes(g)
	handlers.NewPlatformHandler(api, s.sessions, displayer, logger).RegisterRoutes(g)
	handlers.NewNotificationHandler(notifier).RegisterRoutes(g)

	s.echo = e
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	return nil
}

// stopAPI sends name edits still inside their quiet period
func (s *Server) stopAPI(context.Context) error {
	if s.names != nil {
		s.names.Flush()
	}
	return nil
}
