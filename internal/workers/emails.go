package workers

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/optivoo/crm/internal/auth"
	"github.com/optivoo/crm/internal/config"
	"github.com/optivoo/crm/internal/models"
	"github.com/optivoo/crm/internal/onboarding"
	"github.com/optivoo/crm/internal/tasks"
)

// HandleWelcomeEmail greets a newly registered account
func HandleWelcomeEmail(ctx context.Context, t *asynq.Task, db *gorm.DB, mailer Mailer, cfg *config.Config, logger zerolog.Logger) error {
	user, err := loadTaskUser(ctx, t, db)
	if err != nil {
		return err
	}

	return sendEmail(ctx, mailer, cfg, user, "welcome", emailData{
		Link: cfg.Web.PublicURL + "/login",
	}, logger)
}

// HandlePasswordResetEmail delivers the reset link for a stored reset grant
func HandlePasswordResetEmail(ctx context.Context, t *asynq.Task, db *gorm.DB, mailer Mailer, cfg *config.Config, logger zerolog.Logger) error {
	payload, err := tasks.ParseTaskPayload(t)
	if err != nil {
		return fmt.Errorf("failed to parse payload: %w: %w", err, asynq.SkipRetry)
	}
	if payload.ResetToken == "" {
		return fmt.Errorf("reset token missing from payload: %w", asynq.SkipRetry)
	}

	user, err := loadTaskUser(ctx, t, db)
	if err != nil {
		return err
	}

	var grant models.PasswordReset
	err = db.WithContext(ctx).Where("token_hash = ?", auth.HashToken(payload.ResetToken)).First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Info().Str("user_id", user.ID).Msg("Reset grant gone, skipping e-mail")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load reset grant: %w", err)
	}
	if grant.UsedAt != nil {
		logger.Info().Str("user_id", user.ID).Msg("Reset grant already used, skipping e-mail")
		return nil
	}

	return sendEmail(ctx, mailer, cfg, user, "password_reset", emailData{
		Link:      cfg.Web.PublicURL + "/reset-password?token=" + url.QueryEscape(payload.ResetToken),
		ExpiresIn: auth.ResetTokenTTL.String(),
	}, logger)
}

// HandleOnboardingReminder nudges an account that has not finished onboarding
func HandleOnboardingReminder(ctx context.Context, t *asynq.Task, db *gorm.DB, mailer Mailer, cfg *config.Config, logger zerolog.Logger) error {
	user, err := loadTaskUser(ctx, t, db)
	if err != nil {
		return err
	}

	if user.OnboardingCompleted {
		logger.Debug().Str("user_id", user.ID).Msg("Onboarding already completed, skipping reminder")
		return nil
	}

	return sendEmail(ctx, mailer, cfg, user, "onboarding_reminder", emailData{
		Link: cfg.Web.PublicURL + onboarding.Path(onboarding.Steps[0]),
	}, logger)
}

// loadTaskUser loads the account named by the task payload. A missing account
// is not retried.
func loadTaskUser(ctx context.Context, t *asynq.Task, db *gorm.DB) (*models.User, error) {
	payload, err := tasks.ParseTaskPayload(t)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w: %w", err, asynq.SkipRetry)
	}

	var user models.User
	err = models.FindByID(db.WithContext(ctx), payload.UserID, &user)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s not found: %w", payload.UserID, asynq.SkipRetry)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func sendEmail(ctx context.Context, mailer Mailer, cfg *config.Config, user *models.User, name string, data emailData, logger zerolog.Logger) error {
	data.Name = user.Name
	data.Email = user.Email

	subject, body, err := renderEmail(name, data)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	if err := mailer.Send(ctx, Message{
		From:    cfg.Mail.From,
		To:      user.Email,
		Subject: subject,
		Body:    body,
	}); err != nil {
		return fmt.Errorf("failed to send %s e-mail: %w", name, err)
	}

	logger.Info().
		Str("user_id", user.ID).
		Str("email", name).
		Msg("E-mail delivered")
	return nil
}
