package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"secrets_portal/internal/config"
	"secrets_portal/internal/handlers"
	"secrets_portal/internal/logger"
	"secrets_portal/internal/repository"
	"secrets_portal/internal/repository/db"
	"secrets_portal/internal/server"
	"secrets_portal/internal/service"

	"github.com/gin-gonic/gin"
)

const configDir = "configs"

// @title                       Secrets Portal API
// @version                     1.0
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// load configs/config.yml, .env and the environment
	cfg, err := config.Load(configDir)
	if err != nil {
		logger.Get(logger.InfoLevel, logger.ConsoleFormat).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level, cfg.Log.Format)
	gin.SetMode(cfg.GinMode)

	// open DB and apply migrations
	conn, dialect, err := db.InitDB(cfg.DB.URI, log)
	if err != nil {
		log.Fatalw("failed to init database", "err", err, "dialect", db.DialectOf(cfg.DB.URI))
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close database", "err", cerr)
		}
	}()
	log.Infow("database ready", "dialect", dialect)

	// wire dependencies
	repos := repository.NewRepository(conn, dialect)
	services := service.NewService(repos, service.Options{
		BcryptCost: cfg.Auth.BcryptCost,
		SigningKey: []byte(cfg.Session.Secret),
		TokenTTL:   cfg.Auth.TokenTTL,
		SessionTTL: cfg.Session.TTL,
	}, log)
	apiHandler := handlers.NewHandler(services, log, handlers.Options{
		SessionSecret:  []byte(cfg.Session.Secret),
		CookieName:     cfg.Session.CookieName,
		SecureCookies:  cfg.Session.Secure,
		SessionMaxAge:  cfg.Session.TTL,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// purge expired sessions (via composed service)
	go services.Sweeper.Run(ctx, cfg.Session.SweepInterval)

	// start HTTP server
	srv := server.New(server.Timeouts{
		ReadHeader: cfg.Server.ReadHeaderTimeout,
		Write:      cfg.Server.WriteTimeout,
		Idle:       cfg.Server.IdleTimeout,
	})
	runHTTPServer(srv, cfg.Server.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, cfg.Server.ShutdownTimeout, log)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		log.Infow("http server listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, timeout time.Duration, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
	_ = log.Sync()
}
