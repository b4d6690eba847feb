package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hirelocal_backend/internal/adapters"
	"hirelocal_backend/internal/email"
	"hirelocal_backend/internal/events"
	freelancersrepo "hirelocal_backend/internal/freelancers/repository"
	"hirelocal_backend/internal/leads"
	"hirelocal_backend/internal/notification"
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

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	redisClient, err := redisx.NewClient(ctx, cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	eventBus := events.NewInMemoryBus(log)

	// Sweep and expiry notifications are durable only; live pushes belong
	// to the API process that owns the sockets.
	users := usersrepo.New(pool)
	freelancerDirectory := adapters.NewFreelancerDirectory(freelancersrepo.New(pool))

	notificationModule := notification.New(pool, email.NewSender(cfg), cfg, log)
	notificationModule.SetContactReader(users)
	notificationModule.SetFreelancerOwners(freelancerDirectory)
	notificationModule.RegisterHandlers(eventBus)

	val := validator.New()
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
		Locker:      lock.NewRedisLocker(redisClient, "hirelocal:lock:"),
		Freelancers: freelancerDirectory,
		Customers:   customers,
		Categories:  customers,
		Plans:       subscriptionsModule.Service(),
		Notifier:    adapters.NewLeadNotifier(notificationModule.InAppService()),
		Pusher:      adapters.NewRealtimePusher(nil),
		Log:         log,
	})

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go periodic.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, scheduler.Jobs{
		Sweeper: leadsModule.Tracker(),
		Expirer: subscriptionsModule.Service(),
	}, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
