package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "devsecops_api/docs"
	"devsecops_api/internal/auth"
	"devsecops_api/internal/config"
	"devsecops_api/internal/handlers"
	"devsecops_api/internal/logger"
	"devsecops_api/internal/ratelimit"
	"devsecops_api/internal/repository"
	"devsecops_api/internal/repository/db"
	"devsecops_api/internal/server"
	"devsecops_api/internal/service"

	"github.com/gin-gonic/gin"
)

// @title                       DevSecOps API
// @version                     1.0
// @description                 Account registration, login and profile management.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	configPath := flag.String("config", "", "path to config file (default configs/config.yml)")
	flag.Parse()

	// load config.yml
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Get(logger.InfoLevel, logger.FormatConsole).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// open DB
	conn, dialect, err := db.InitDB(ctx, db.Config{
		Driver:       cfg.DB.Driver,
		DSN:          cfg.DB.DSN,
		MaxOpenConns: cfg.DB.MaxOpenConns,
	}, log)
	if err != nil {
		log.Fatalw("failed to init database", "driver", cfg.DB.Driver, "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close database", "err", cerr)
		}
	}()

	// wire dependencies
	hasher, err := auth.NewPasswordHasher(auth.HasherConfig{
		Algorithm:        cfg.Password.Algorithm,
		PBKDF2Iterations: cfg.Password.PBKDF2Iterations,
		BcryptCost:       cfg.Password.BcryptCost,
	})
	if err != nil {
		log.Fatalw("invalid password settings", "err", err)
	}
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL,
	})
	if err != nil {
		log.Fatalw("invalid jwt settings", "err", err)
	}

	limiter, limits, closeLimiter, err := buildRateLimiting(ctx, cfg.RateLimit, cfg.Redis)
	if err != nil {
		log.Fatalw("failed to init rate limiter", "backend", cfg.RateLimit.Backend, "err", err)
	}
	defer closeLimiter()

	repos := repository.NewRepository(conn, dialect)
	services := service.NewService(repos, hasher, tokens)
	apiHandler := handlers.NewHandler(services, log, handlers.Options{
		AppName:        cfg.App.Name,
		Version:        cfg.App.Version,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		HSTSMaxAge:     cfg.Server.HSTSMaxAge,
		TrustedProxies: cfg.Server.TrustedProxies,
		Swagger:        cfg.Swagger.Enabled,
		Limiter:        limiter,
		Limits:         limits,
	})

	// start HTTP server
	srv := server.New(cfg.Port, apiHandler.InitRoutes(), server.Timeouts{
		ReadHeader: cfg.Server.ReadHeaderTimeout,
		Write:      cfg.Server.WriteTimeout,
		Idle:       cfg.Server.IdleTimeout,
	})
	runHTTPServer(srv, log, cfg)

	// graceful shutdown
	waitForShutdown(cancel, srv, log, cfg)
}

// buildRateLimiting parses the configured rules and picks the backend.
// A disabled limiter yields a nil Limiter and zero rules.
func buildRateLimiting(ctx context.Context, rl config.RateLimitConfig, rc config.RedisConfig) (ratelimit.Limiter, handlers.RateLimits, func(), error) {
	noop := func() {}
	if !rl.Enabled {
		return nil, handlers.RateLimits{}, noop, nil
	}

	var limits handlers.RateLimits
	for _, r := range []struct {
		dst *ratelimit.Rule
		raw string
	}{
		{&limits.Register, rl.Register},
		{&limits.Login, rl.Login},
		{&limits.ProfileUpdate, rl.ProfileUpdate},
	} {
		rule, err := ratelimit.ParseRule(r.raw)
		if err != nil {
			return nil, handlers.RateLimits{}, noop, err
		}
		*r.dst = rule
	}

	switch rl.Backend {
	case "redis":
		rd, err := ratelimit.NewRedis(ctx, rc.URL)
		if err != nil {
			return nil, handlers.RateLimits{}, noop, err
		}
		return rd, limits, func() { _ = rd.Close() }, nil
	case "", "memory":
		return ratelimit.NewMemory(), limits, noop, nil
	default:
		return nil, handlers.RateLimits{}, noop, fmt.Errorf("unknown rate limit backend %q", rl.Backend)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, log *logger.Logger, cfg *config.Config) {
	go func() {
		log.Infow("http_server_started",
			"addr", srv.Addr(),
			"env", cfg.Env,
			"db_driver", cfg.DB.Driver,
			"ratelimit_backend", cfg.RateLimit.Backend,
		)
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger, cfg *config.Config) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
