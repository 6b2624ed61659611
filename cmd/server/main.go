package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Joel785/Medallion-Project/internal/api"
	"github.com/Joel785/Medallion-Project/internal/auth"
	"github.com/Joel785/Medallion-Project/internal/cache"
	"github.com/Joel785/Medallion-Project/internal/config"
	"github.com/Joel785/Medallion-Project/internal/logging"
	"github.com/Joel785/Medallion-Project/internal/mcp"
	"github.com/Joel785/Medallion-Project/internal/metrics"
	"github.com/Joel785/Medallion-Project/internal/repository"
	"github.com/Joel785/Medallion-Project/internal/services"
	"github.com/Joel785/Medallion-Project/internal/tls"
)

const serviceName = "medallion-api"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx := context.Background()

	configPath := flag.String("config", "", "Path to config.yaml")
	migrate := flag.Bool("migrate", false, "Apply the schema before serving")
	flag.Parse()

	v := config.New()
	cfg, err := config.Load(v, *configPath)
	if err != nil {
		log.Fatalf("Configuration loading failed: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, serviceName)
	if err != nil {
		log.Fatalf("Logger initialization failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		"okta_client_id", cfg.Auth.ClientID,
		"okta_domain", cfg.Auth.OktaDomain,
		"swagger_client_id", cfg.Auth.SwaggerClientID,
		"config_file", v.ConfigFileUsed(),
	)
	if cfg.Auth.SwaggerClientID != "" && cfg.Auth.SwaggerClientID == cfg.Auth.ClientID {
		logger.Warn("Swagger client ID matches the backend client ID; PKCE login from /docs will fail if the backend app requires a secret")
	}

	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer dbPool.Close()

	store := repository.NewPostgresStore(dbPool, logger)
	if *migrate {
		if err := store.Migrate(ctx); err != nil {
			log.Fatalf("Schema migration failed: %v", err)
		}
	}

	m := metrics.New()

	var goldCache cache.Cache = cache.Noop{}
	redisCache, err := cache.NewRedis(ctx, cache.Config{URL: cfg.Cache.RedisURL, TTL: cfg.Cache.TTL})
	switch {
	case err != nil:
		logger.Warn("Redis unavailable, serving gold reads uncached", "error", err)
	case redisCache != nil:
		goldCache = redisCache
		defer redisCache.Close()
		logger.Info("Gold cache enabled", "ttl", cfg.Cache.TTL)
	}

	gold := services.NewGoldService(store, goldCache, logger, m)
	reconcile := services.NewReconcileService(store, logger, m)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(serviceName))
	e.Use(requestLogger(logger))

	authz, err := auth.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize auth", "error", err)
		log.Fatalf("auth initialization failed: %v", err)
	}

	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))

	handler := api.NewHandler(gold, reconcile, store, store, version)
	api.RegisterRoutes(e, handler, authz.RequireAuth)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	// MCP tools read the same data as /api/v1, so they sit behind the same
	// bearer auth and the gold scope.
	mcpServer := mcp.NewServer(gold, reconcile, store, version)
	mcpMux := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpMux, mcpServer.GetMCPServer())
	mcpHandler := echo.WrapHandler(authz.RequireAuth(auth.RequireScope(auth.ScopeGoldRead)(mcpMux)))
	e.Any("/mcp", mcpHandler)
	e.Any("/mcp/*", mcpHandler)

	e.GET("/openapi.yaml", echo.WrapHandler(api.SpecHandler(cfg.Auth.OktaDomain)))
	e.GET("/docs", echo.WrapHandler(api.SwaggerHandler(cfg.Auth.OktaDomain, cfg.Auth.SwaggerClientID)))
	e.GET("/docs/oauth2-redirect.html", echo.WrapHandler(api.OAuth2RedirectHandler()))

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.TLS.Enable {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			log.Fatal("TLS enabled but cert/key file not provided")
		}
		created, err := tls.EnsureCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
		if err != nil {
			log.Fatalf("TLS certificate: %v", err)
		}
		if created {
			logger.Warn("Generated self-signed certificate", "cert", cfg.TLS.CertFile, "hosts", cfg.TLS.Hostnames)
		}
	}

	if err := serve(server, cfg, logger); err != nil {
		logger.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

// serve runs server until it fails or SIGINT/SIGTERM arrives, then drains
// in-flight requests for at most cfg.Server.ShutdownTimeout.
func serve(server *http.Server, cfg *config.Config, logger *logging.Logger) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", "address", server.Addr, "tls", cfg.TLS.Enable, "version", version)
		if cfg.TLS.Enable {
			listenErr <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			listenErr <- server.ListenAndServe()
		}
	}()

	select {
	case err := <-listenErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
	}

	logger.Info("Draining connections", "timeout", cfg.Server.ShutdownTimeout)
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		return errors.Join(fmt.Errorf("shutdown: %w", err), server.Close())
	}
	logger.Info("Server stopped")
	return nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection", "host", cfg.DB.Host, "database", cfg.DB.Name)

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.DB.Host, err)
	}

	logger.Info("Database connected")
	return pool, nil
}

// requestLogger writes one structured line per request.
func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			kv := []interface{}{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				logger.Error("request", append(kv, "error", v.Error)...)
				return nil
			}
			logger.Debug("request", kv...)
			return nil
		},
	})
}
