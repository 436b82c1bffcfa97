package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // IANA zones for hosts without a zoneinfo database

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/sendtime-scheduler/internal/api"
	"github.com/ignite/sendtime-scheduler/internal/config"
	"github.com/ignite/sendtime-scheduler/internal/pkg/distlock"
	"github.com/ignite/sendtime-scheduler/internal/pkg/logger"
	"github.com/ignite/sendtime-scheduler/internal/repository/postgres"
	"github.com/ignite/sendtime-scheduler/internal/sendtime"
	"github.com/ignite/sendtime-scheduler/internal/service/scheduling"
	"github.com/ignite/sendtime-scheduler/internal/timezone"
	"github.com/ignite/sendtime-scheduler/internal/worker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fatal("Failed to load config", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.ShouldRedactPII())

	// Redis is optional: it shares the timezone cache and worker locks
	// between replicas. Without it the resolver caches in process.
	var redisClient *redis.Client
	var tzCache timezone.Cache = timezone.NewMemoryCache()
	if cfg.Redis.URL != "" {
		redisClient, err = openRedis(cfg.Redis.URL)
		if err != nil {
			logger.Warn("Redis connection failed, using in-process timezone cache", "error", err)
			redisClient = nil
		} else {
			tzCache = timezone.NewRedisCache(redisClient, cfg.Redis.TimezoneCacheTTL(), cfg.Redis.LookupTimeout())
			logger.Info("Redis connected, timezone cache shared")
		}
	}

	engine := sendtime.NewEngine(
		timezone.NewResolver(tzCache),
		sendtime.WithLocale(cfg.Scheduler.Locale),
		sendtime.WithChunkSize(cfg.Scheduler.ChunkSize),
		sendtime.WithWorkers(cfg.Scheduler.Workers),
	)

	deps := api.Deps{Engine: engine, RedisClient: redisClient}

	// The database is only needed for campaign rescheduling.
	var rescheduler *worker.RescheduleWorker
	if cfg.Database.URL != "" {
		db, err := openDB(cfg.Database)
		if err != nil {
			fatal("Failed to connect to database", err)
		}
		defer db.Close()
		logger.Info("Connected to database")

		svc := scheduling.NewService(postgres.NewScheduleRepo(db), engine)
		deps.DB = db
		deps.Campaigns = svc

		if cfg.Worker.Enabled {
			rescheduler, err = worker.NewRescheduleWorker(svc, lockFactory(redisClient, db),
				cfg.Worker.Cron, cfg.Worker.LockTTL(), cfg.Worker.CampaignsPerSweep)
			if err != nil {
				fatal("Failed to create reschedule worker", err)
			}
			if err := rescheduler.Start(); err != nil {
				fatal("Failed to start reschedule worker", err)
			}
		}
	} else {
		logger.Warn("DATABASE_URL not set, campaign rescheduling disabled")
	}

	server := api.NewServer(cfg.Server, cfg.Scheduler, deps)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting server", "host", cfg.Server.GetHost(), "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("Server error", err)
		}
	}()

	<-done
	logger.Info("Shutting down")

	if rescheduler != nil {
		rescheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	logger.Info("Server stopped")
}

func openDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// lockFactory prefers Redis locks and falls back to Postgres advisory locks.
func lockFactory(redisClient *redis.Client, db *sql.DB) worker.LockFactory {
	return func(key string, ttl time.Duration) distlock.DistLock {
		return distlock.NewLock(redisClient, db, key, ttl)
	}
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
