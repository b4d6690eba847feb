package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hirelocal_backend/internal/adapters"
	"hirelocal_backend/internal/email"
	"hirelocal_backend/internal/events"
	freelancersrepo "hirelocal_backend/internal/freelancers/repository"
	apphttp "hirelocal_backend/internal/http"
	"hirelocal_backend/internal/http/router"
	"hirelocal_backend/internal/leads"
	"hirelocal_backend/internal/notification"
	"hirelocal_backend/internal/notification/realtime"
	"hirelocal_backend/internal/scheduler"
	"hirelocal_backend/internal/subscriptions"
	usersrepo "hirelocal_backend/internal/users/repository"
	"hirelocal_backend/platform/config"
	"hirelocal_backend/platform/db"
	"hirelocal_backend/platform/lock"
	"hirelocal_backend/platform/logger"
	"hirelocal_backend/platform/redisx"
	"hirelocal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const lockPrefix = "hirelocal:lock:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	locker, sweepScheduler, closeRedis := initRedis(ctx, cfg, log)
	defer closeRedis()
	if sweepScheduler != nil {
		sweepScheduler.RegisterHandlers(eventBus)
	}

	val := validator.New()
	sender := email.NewSender(cfg)

	hub := realtime.NewHub(cfg.GetWSSendBuffer(), log)
	defer hub.Close()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	users := usersrepo.New(pool)
	freelancerDirectory := adapters.NewFreelancerDirectory(freelancersrepo.New(pool))

	notificationModule := notification.New(pool, sender, cfg, log)
	notificationModule.SetPublisher(hub)
	notificationModule.SetContactReader(users)
	notificationModule.SetFreelancerOwners(freelancerDirectory)
	notificationModule.RegisterHandlers(eventBus)

	subscriptionsModule, err := subscriptions.NewModule(pool, eventBus, freelancerDirectory, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize subscriptions module", "error", err)
		panic("failed to initialize subscriptions module: " + err.Error())
	}

	customers := adapters.NewCustomerDirectory(users)
	leadsModule := leads.NewModule(leads.Deps{
		Pool:        pool,
		Bus:         eventBus,
		Validator:   val,
		Config:      cfg,
		Locker:      locker,
		Freelancers: freelancerDirectory,
		Customers:   customers,
		Categories:  customers,
		Plans:       subscriptionsModule.Service(),
		Notifier:    adapters.NewLeadNotifier(notificationModule.InAppService()),
		Pusher:      adapters.NewRealtimePusher(hub),
		Log:         log,
	})

	// Without a broker the API process runs the batch jobs itself.
	if sweepScheduler == nil {
		ticker := scheduler.NewTicker(scheduler.Jobs{
			Sweeper: leadsModule.Tracker(),
			Expirer: subscriptionsModule.Service(),
		}, log, 0, 0)
		go ticker.Run(ctx)
		log.Info("in-process job ticker started")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			subscriptionsModule,
			notificationModule,
			realtime.NewModule(hub, cfg),
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initRedis returns the sweep lock and the delayed-sweep client. Both fall
// back to in-process behaviour when REDIS_URL is empty or unreachable.
func initRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) (lock.Locker, *scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; using in-process locks and job ticker")
		return lock.Noop{}, nil, func() {}
	}

	client, err := redisx.NewClient(ctx, cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to connect to redis; using in-process locks and job ticker", "error", err)
		return lock.Noop{}, nil, func() {}
	}

	sweepClient, err := scheduler.NewClient(cfg, cfg.GetMissedLeadTimeout(), log)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		_ = client.Close()
		return lock.Noop{}, nil, func() {}
	}

	return lock.NewRedisLocker(client, lockPrefix), sweepClient, func() {
		_ = sweepClient.Close()
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
