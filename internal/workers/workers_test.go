package workers

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/optivoo/crm/internal/auth"
	"github.com/optivoo/crm/internal/config"
	"github.com/optivoo/crm/internal/database"
	"github.com/optivoo/crm/internal/models"
	"github.com/optivoo/crm/internal/tasks"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type recordingEnqueuer struct {
	tasks    []*asynq.Task
	conflict map[string]bool
}

func (r *recordingEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	payload, err := tasks.ParseTaskPayload(task)
	if err != nil {
		return nil, err
	}
	if r.conflict[payload.UserID] {
		return nil, asynq.ErrTaskIDConflict
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "onboarding-reminder:" + payload.UserID, Type: task.Type()}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Web:  config.WebConfig{PublicURL: "https://crm.example.com"},
		Mail: config.MailConfig{From: "Optivoo CRM <no-reply@optivoo.com>"},
		Reminder: config.ReminderConfig{
			Schedule: "0 9 * * *",
			After:    24 * time.Hour,
		},
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "workers.sqlite"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, createdAt time.Time, onboarded bool) models.User {
	t.Helper()
	user := models.User{Email: email, PasswordHash: "h", Name: "Ana", OnboardingCompleted: onboarded}
	user.CreatedAt = createdAt
	require.NoError(t, db.Create(&user).Error)
	return user
}

func userTask(t *testing.T, typename, userID string) *asynq.Task {
	t.Helper()
	var (
		task *asynq.Task
		err  error
	)
	switch typename {
	case tasks.TypeWelcomeEmail:
		task, err = tasks.NewWelcomeEmailTask(userID)
	case tasks.TypeOnboardingReminder:
		task, err = tasks.NewOnboardingReminderTask(userID)
	}
	require.NoError(t, err)
	return task
}

func TestRenderEmail(t *testing.T) {
	subject, body, err := renderEmail("password_reset", emailData{
		Name:      "Ana",
		Email:     "ana@x.com",
		Link:      "https://crm.example.com/reset-password?token=abc",
		ExpiresIn: "1h0m0s",
	})
	require.NoError(t, err)
	assert.Equal(t, "Reset your Optivoo CRM password", subject)
	assert.Contains(t, body, "Hi Ana,")
	assert.Contains(t, body, "ana@x.com")
	assert.Contains(t, body, "https://crm.example.com/reset-password?token=abc")

	_, _, err = renderEmail("missing", emailData{})
	assert.Error(t, err)
}

func TestHandleWelcomeEmail(t *testing.T) {
	db := openTestDB(t)
	mailer := &recordingMailer{}
	user := createUser(t, db, "ana@x.com", time.Now(), false)

	err := HandleWelcomeEmail(context.Background(), userTask(t, tasks.TypeWelcomeEmail, user.ID), db, mailer, testConfig(), zerolog.Nop())
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "ana@x.com", msg.To)
	assert.Equal(t, "Optivoo CRM <no-reply@optivoo.com>", msg.From)
	assert.Equal(t, "Welcome to Optivoo CRM, Ana", msg.Subject)
	assert.Contains(t, msg.Body, "https://crm.example.com/login")
}

func TestHandleWelcomeEmail_UnknownUserIsNotRetried(t *testing.T) {
	db := openTestDB(t)

	err := HandleWelcomeEmail(context.Background(), userTask(t, tasks.TypeWelcomeEmail, "missing"), db, &recordingMailer{}, testConfig(), zerolog.Nop())
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleWelcomeEmail_MailerFailureIsRetried(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "ana@x.com", time.Now(), false)
	mailer := &recordingMailer{err: errors.New("smtp down")}

	err := HandleWelcomeEmail(context.Background(), userTask(t, tasks.TypeWelcomeEmail, user.ID), db, mailer, testConfig(), zerolog.Nop())
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlePasswordResetEmail(t *testing.T) {
	db := openTestDB(t)
	mailer := &recordingMailer{}
	user := createUser(t, db, "ana@x.com", time.Now(), true)

	token := "a1b2c3"
	grant := models.PasswordReset{UserID: user.ID, TokenHash: auth.HashToken(token), ExpiresAt: time.Now().Add(auth.ResetTokenTTL)}
	require.NoError(t, db.Create(&grant).Error)

	task, err := tasks.NewPasswordResetEmailTask(user.ID, token)
	require.NoError(t, err)
	require.NoError(t, HandlePasswordResetEmail(context.Background(), task, db, mailer, testConfig(), zerolog.Nop()))

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].Body, "https://crm.example.com/reset-password?token=a1b2c3")
	assert.Contains(t, mailer.sent[0].Body, "1h0m0s")

	// A redeemed grant is not mailed again on retry
	now := time.Now()
	require.NoError(t, db.Model(&grant).Update("used_at", &now).Error)
	require.NoError(t, HandlePasswordResetEmail(context.Background(), task, db, mailer, testConfig(), zerolog.Nop()))
	assert.Len(t, mailer.sent, 1)

	// Unknown token
	other, err := tasks.NewPasswordResetEmailTask(user.ID, "nope")
	require.NoError(t, err)
	require.NoError(t, HandlePasswordResetEmail(context.Background(), other, db, mailer, testConfig(), zerolog.Nop()))
	assert.Len(t, mailer.sent, 1)

	// Missing token
	empty, err := tasks.NewPasswordResetEmailTask(user.ID, "")
	require.NoError(t, err)
	assert.ErrorIs(t, HandlePasswordResetEmail(context.Background(), empty, db, mailer, testConfig(), zerolog.Nop()), asynq.SkipRetry)
}

func TestHandleOnboardingReminder(t *testing.T) {
	db := openTestDB(t)
	mailer := &recordingMailer{}
	pending := createUser(t, db, "pending@x.com", time.Now(), false)
	done := createUser(t, db, "done@x.com", time.Now(), true)

	require.NoError(t, HandleOnboardingReminder(context.Background(), userTask(t, tasks.TypeOnboardingReminder, pending.ID), db, mailer, testConfig(), zerolog.Nop()))
	require.NoError(t, HandleOnboardingReminder(context.Background(), userTask(t, tasks.TypeOnboardingReminder, done.ID), db, mailer, testConfig(), zerolog.Nop()))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "pending@x.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Body, "https://crm.example.com/onboarding/sector")
}

func TestNewReminderScheduler_Validation(t *testing.T) {
	db := openTestDB(t)

	_, err := NewReminderScheduler(db, &recordingEnqueuer{}, config.ReminderConfig{Schedule: "every day", After: time.Hour}, zerolog.Nop())
	assert.ErrorContains(t, err, "invalid reminder schedule")

	_, err = NewReminderScheduler(db, &recordingEnqueuer{}, config.ReminderConfig{Schedule: "0 9 * * *"}, zerolog.Nop())
	assert.ErrorContains(t, err, "must be positive")
}

func TestReminderScheduler_NextRun(t *testing.T) {
	r, err := NewReminderScheduler(openTestDB(t), &recordingEnqueuer{}, testConfig().Reminder, zerolog.Nop())
	require.NoError(t, err)

	from := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), r.NextRun(from))
}

func TestReminderScheduler_Scan(t *testing.T) {
	db := openTestDB(t)
	enq := &recordingEnqueuer{}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	r, err := NewReminderScheduler(db, enq, testConfig().Reminder, zerolog.Nop())
	require.NoError(t, err)
	r.now = func() time.Time { return now }

	due := createUser(t, db, "due@x.com", now.Add(-25*time.Hour), false)
	createUser(t, db, "fresh@x.com", now.Add(-time.Hour), false)
	createUser(t, db, "onboarded@x.com", now.Add(-48*time.Hour), true)

	n, err := r.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, tasks.TypeOnboardingReminder, enq.tasks[0].Type())

	payload, err := tasks.ParseTaskPayload(enq.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, due.ID, payload.UserID)

	var reloaded models.User
	require.NoError(t, models.FindByID(db, due.ID, &reloaded))
	require.NotNil(t, reloaded.ReminderSentAt)

	// Reminded accounts are not picked up again
	n, err = r.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, enq.tasks, 1)
}

func TestReminderScheduler_ScanTreatsDuplicateTaskAsSent(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()
	user := createUser(t, db, "due@x.com", now.Add(-48*time.Hour), false)
	enq := &recordingEnqueuer{conflict: map[string]bool{user.ID: true}}

	r, err := NewReminderScheduler(db, enq, testConfig().Reminder, zerolog.Nop())
	require.NoError(t, err)

	n, err := r.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var reloaded models.User
	require.NoError(t, models.FindByID(db, user.ID, &reloaded))
	assert.NotNil(t, reloaded.ReminderSentAt)
}
