package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"nw-social/internal"
	"nw-social/internal/auth"
	"nw-social/internal/config"
	"nw-social/internal/credentials"
	"nw-social/internal/users"
	"nw-social/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := log.StandardLogger()
	logFile, err := internal.SetupLogger(logger, internal.LogOptions{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Dir:    cfg.LogDir,
	})
	if err != nil {
		log.Fatalf("setup logging: %v", err)
	}

	// connect to database
	database := &internal.DatabaseConnection{
		URI:    cfg.MongoURI,
		DB:     cfg.MainDB,
		Logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoTimeout)
	if err := database.Connect(ctx); err != nil {
		// keep serving, requests fail with 500 and /readyz reports 503
		log.Errorf("database connection failed: %v", err)
	}
	cancel()

	store := users.NewStore(database.MongoDB, cfg.MongoTimeout, cfg.MongoTransactions)
	if database.MongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoTimeout)
		if err := store.EnsureIndexes(ctx); err != nil {
			log.Errorf("ensure indexes: %v", err)
		}
		cancel()
	}

	tokens := credentials.NewTokens(cfg.Key, cfg.TokenTTL)
	r := web.NewRouter(web.Options{
		Auth:   auth.NewService(store, tokens, cfg.BcryptCost),
		Users:  users.NewService(store, cfg.BcryptCost),
		Tokens: tokens,
		DB:     database,
		AuthLimiter: web.NewRateLimiter(web.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimitAuthRequests,
			Window:            cfg.RateLimitAuthWindow,
			Burst:             cfg.RateLimitAuthBurst,
		}),
		Logger: logger,
		Debug:  cfg.Debug,
	})
	r.Init()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	log.Infof("Listening on %s", cfg.Listen)
	if err := run(r, database, cfg.Listen, signals); err != nil {
		log.Error(err)
	}

	if logFile != nil {
		_ = logFile.Close()
	}
}

type disconnecter interface {
	Disconnect(ctx context.Context) error
}

// run serves until a signal arrives and returns once the in-flight requests
// have drained and the database is closed. Listen returns as soon as the
// listeners close, so the shutdown sequence is awaited separately.
func run(r *web.Router, database disconnecter, listen string, signals <-chan os.Signal) error {
	done := make(chan struct{})
	go func() {
		<-signals
		shutdown(r, database)
		close(done)
	}()

	if err := r.Listen(listen); err != nil {
		return err
	}
	<-done
	return nil
}

// shutdown stops accepting requests, drains the in-flight ones and then
// closes the database client.
func shutdown(r *web.Router, database disconnecter) {
	log.Warnf("%d threads at exit.", runtime.NumGoroutine())
	log.Warn("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := r.Shutdown(ctx); err != nil {
		log.Errorf("http shutdown: %v", err)
	}
	if err := database.Disconnect(ctx); err != nil {
		log.Errorf("database disconnect: %v", err)
	}
}
