package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // IANA zones for hosts without a zoneinfo database

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/ignite/sendtime-scheduler/internal/config"
	"github.com/ignite/sendtime-scheduler/internal/domain"
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
	validatePath := flag.String("validate", "", "validate a YAML campaign settings file and exit")
	once := flag.Bool("once", false, "run a single reschedule sweep and exit")
	flag.Parse()

	if *validatePath != "" {
		os.Exit(validateFile(*validatePath))
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fatal("Failed to load config", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.ShouldRedactPII())

	if cfg.Database.URL == "" {
		fatal("DATABASE_URL is required", nil)
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		fatal("Failed to open database", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = db.PingContext(ctx)
	cancel()
	if err != nil {
		fatal("Failed to ping database", err)
	}
	logger.Info("Connected to database")

	// Redis locks when available, Postgres advisory locks otherwise.
	var redisClient *redis.Client
	var tzCache timezone.Cache = timezone.NewMemoryCache()
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			opts = &redis.Options{Addr: cfg.Redis.URL}
		}
		redisClient = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err = redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Warn("Redis connection failed, using PG advisory locks", "error", err)
			redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
			tzCache = timezone.NewRedisCache(redisClient, cfg.Redis.TimezoneCacheTTL(), cfg.Redis.LookupTimeout())
		}
	}

	engine := sendtime.NewEngine(
		timezone.NewResolver(tzCache),
		sendtime.WithLocale(cfg.Scheduler.Locale),
		sendtime.WithChunkSize(cfg.Scheduler.ChunkSize),
		sendtime.WithWorkers(cfg.Scheduler.Workers),
	)
	svc := scheduling.NewService(postgres.NewScheduleRepo(db), engine)

	locks := func(key string, ttl time.Duration) distlock.DistLock {
		return distlock.NewLock(redisClient, db, key, ttl)
	}
	w, err := worker.NewRescheduleWorker(svc, locks, cfg.Worker.Cron, cfg.Worker.LockTTL(), cfg.Worker.CampaignsPerSweep)
	if err != nil {
		fatal("Failed to create reschedule worker", err)
	}

	if *once {
		n := w.RunOnce(context.Background())
		logger.Info("Reschedule sweep finished", "campaigns", n)
		return
	}

	if err := w.Start(); err != nil {
		fatal("Failed to start reschedule worker", err)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker")
	w.Stop()
	logger.Info("Worker stopped")
}

// validateFile checks a YAML campaign settings file and prints every
// problem. It returns the process exit code.
func validateFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		return 2
	}

	var s domain.CampaignSettings
	if err := yaml.Unmarshal(data, &s); err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", path, err)
		return 2
	}

	res := sendtime.ValidateSettings(s.WithDefaults())
	if res.Valid {
		fmt.Printf("%s: valid\n", path)
		return 0
	}
	for _, e := range res.Errors {
		fmt.Printf("%s: %s\n", path, e)
	}
	return 1
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
