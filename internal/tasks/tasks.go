package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeWelcomeEmail       = "email:welcome"
	TypePasswordResetEmail = "email:password_reset"
	TypeOnboardingReminder = "email:onboarding_reminder"
)

// Enqueuer is the part of *asynq.Client the API server and scheduler use
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskPayload is the common payload for all tasks
type TaskPayload struct {
	UserID     string `json:"user_id"`
	ResetToken string `json:"reset_token,omitempty"`
}

// NewWelcomeEmailTask creates a task to greet a newly registered account
func NewWelcomeEmailTask(userID string) (*asynq.Task, error) {
	return newTask(TypeWelcomeEmail, TaskPayload{UserID: userID})
}

// NewPasswordResetEmailTask creates a task to deliver a reset link
func NewPasswordResetEmailTask(userID, resetToken string) (*asynq.Task, error) {
	return newTask(TypePasswordResetEmail, TaskPayload{UserID: userID, ResetToken: resetToken})
}

// NewOnboardingReminderTask creates a task to nudge an account to finish onboarding
func NewOnboardingReminderTask(userID string) (*asynq.Task, error) {
	return newTask(TypeOnboardingReminder, TaskPayload{UserID: userID})
}

func newTask(typename string, p TaskPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(typename, payload), nil
}

// ParseTaskPayload parses task payload from Asynq task
func ParseTaskPayload(task *asynq.Task) (TaskPayload, error) {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
