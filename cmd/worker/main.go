package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/optivoo/crm/internal/config"
	"github.com/optivoo/crm/internal/database"
	"github.com/optivoo/crm/internal/logger"
	"github.com/optivoo/crm/internal/tasks"
	"github.com/optivoo/crm/internal/workers"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	log.Info().Str("version", version).Msg("Starting Optivoo Asynq worker")

	db, err := database.Open(cfg.Database.URL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close(db)

	// Initialize Asynq client (for the reminder scheduler)
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})
	defer asynqClient.Close()

	// Initialize Asynq server
	asynqServer := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr: cfg.Redis.Address,
		},
		asynq.Config{
			Concurrency: 10, // Number of concurrent workers
			Queues: map[string]int{
				"critical": 6, // 60% of workers for critical tasks
				"default":  3, // 30% of workers for default queue
				"low":      1, // 10% of workers for low priority
			},
			// Logging
			Logger: &asynqLogger{log: log},
		},
	)

	mailer := workers.NewLogMailer(log)

	// Register task handlers
	mux := asynq.NewServeMux()

	// Account e-mails
	mux.HandleFunc(tasks.TypeWelcomeEmail, func(ctx context.Context, t *asynq.Task) error {
		return workers.HandleWelcomeEmail(ctx, t, db, mailer, cfg, log)
	})
	mux.HandleFunc(tasks.TypePasswordResetEmail, func(ctx context.Context, t *asynq.Task) error {
		return workers.HandlePasswordResetEmail(ctx, t, db, mailer, cfg, log)
	})
	mux.HandleFunc(tasks.TypeOnboardingReminder, func(ctx context.Context, t *asynq.Task) error {
		return workers.HandleOnboardingReminder(ctx, t, db, mailer, cfg, log)
	})

	// Onboarding reminder scan
	reminders, err := workers.NewReminderScheduler(db, asynqClient, cfg.Reminder, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create reminder scheduler")
	}
	reminders.Start()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Info().Msg("Starting Asynq worker server...")
		if err := asynqServer.Run(mux); err != nil {
			log.Fatal().Err(err).Msg("Asynq worker server failed")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")

	<-reminders.Stop().Done()

	log.Info().Msg("Stopping Asynq worker - waiting for tasks to finish...")
	asynqServer.Shutdown()

	log.Info().Msg("Worker shutdown complete")
}

// asynqLogger is a wrapper to make zerolog compatible with Asynq's logger interface
type asynqLogger struct {
	log zerolog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.log.Debug().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.log.Info().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.log.Warn().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.log.Fatal().Msg(fmt.Sprint(args...))
}
