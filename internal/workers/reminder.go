package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/optivoo/crm/internal/config"
	"github.com/optivoo/crm/internal/models"
	"github.com/optivoo/crm/internal/tasks"
)

// Standard 5-field format: minute hour day-of-month month day-of-week
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ReminderScheduler periodically enqueues onboarding reminders for accounts
// that signed up a while ago and never finished onboarding. Each account is
// reminded at most once.
type ReminderScheduler struct {
	db       *gorm.DB
	enqueuer tasks.Enqueuer
	schedule cron.Schedule
	after    time.Duration
	cron     *cron.Cron
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReminderScheduler validates the cron expression and builds a scheduler
func NewReminderScheduler(db *gorm.DB, enqueuer tasks.Enqueuer, cfg config.ReminderConfig, logger zerolog.Logger) (*ReminderScheduler, error) {
	schedule, err := scheduleParser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.After <= 0 {
		return nil, fmt.Errorf("reminder delay must be positive, got %s", cfg.After)
	}

	logger = logger.With().Str("component", "reminder").Logger()
	return &ReminderScheduler{
		db:       db,
		enqueuer: enqueuer,
		schedule: schedule,
		after:    cfg.After,
		cron:     cron.New(cron.WithParser(scheduleParser), cron.WithLogger(cron.PrintfLogger(&logger))),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start runs one scan immediately and then on every schedule tick
func (r *ReminderScheduler) Start() {
	r.cron.Schedule(r.schedule, cron.FuncJob(r.run))
	r.cron.Start()

	go r.run()

	r.logger.Info().
		Dur("after", r.after).
		Time("next_run", r.NextRun(r.now())).
		Msg("Reminder scheduler started")
}

// Stop stops the schedule; the returned context is done once a running scan finishes
func (r *ReminderScheduler) Stop() context.Context {
	return r.cron.Stop()
}

// NextRun returns the first tick after from
func (r *ReminderScheduler) NextRun(from time.Time) time.Time {
	return r.schedule.Next(from)
}

func (r *ReminderScheduler) run() {
	n, err := r.Scan(context.Background())
	if err != nil {
		r.logger.Error().Err(err).Int("enqueued", n).Msg("Reminder scan failed")
		return
	}
	if n > 0 {
		r.logger.Info().Int("enqueued", n).Msg("Onboarding reminders enqueued")
	} else {
		r.logger.Debug().Msg("No onboarding reminders due")
	}
}

// Scan enqueues a reminder for every due account and marks it reminded.
// It returns the number of accounts handled.
func (r *ReminderScheduler) Scan(ctx context.Context) (int, error) {
	now := r.now()
	cutoff := now.Add(-r.after)

	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("onboarding_completed = ? AND reminder_sent_at IS NULL AND created_at <= ?", false, cutoff).
		Order("created_at").
		Find(&users).Error; err != nil {
		return 0, fmt.Errorf("failed to query users due a reminder: %w", err)
	}

	handled := 0
	for _, user := range users {
		task, err := tasks.NewOnboardingReminderTask(user.ID)
		if err != nil {
			return handled, err
		}

		_, err = r.enqueuer.Enqueue(task,
			asynq.TaskID("onboarding-reminder:"+user.ID),
			asynq.MaxRetry(5),
			asynq.Timeout(time.Minute),
		)
		if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			return handled, fmt.Errorf("failed to enqueue reminder for user %s: %w", user.ID, err)
		}

		if err := r.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("reminder_sent_at", now).Error; err != nil {
			return handled, fmt.Errorf("failed to mark user %s reminded: %w", user.ID, err)
		}

		r.logger.Debug().Str("user_id", user.ID).Msg("Onboarding reminder enqueued")
		handled++
	}

	return handled, nil
}
