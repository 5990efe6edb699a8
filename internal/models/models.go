package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Config represents the global configuration for the deployment
// This is a singleton model (only one row should exist)
type Config struct {
	BaseModel
	JWTSecret string `json:"-" gorm:"type:varchar(64);not null"` // Auto-generated on first start (64 hex chars)
}

// User represents a CRM account
type User struct {
	BaseModel
	Email               string     `json:"email" gorm:"unique;not null"`
	PasswordHash        string     `json:"-" gorm:"not null"`
	Name                string     `json:"name"`
	OnboardingCompleted bool       `json:"onboarding_completed" gorm:"not null;default:false"`
	OnboardedAt         *time.Time `json:"onboarded_at"`
	ReminderSentAt      *time.Time `json:"reminder_sent_at"` // Set once the onboarding reminder went out
	UpdatedAt           time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// BusinessProfile is what the account entered during onboarding
type BusinessProfile struct {
	BaseModel
	UserID      string    `json:"user_id" gorm:"uniqueIndex;not null"`
	Sector      string    `json:"sector" gorm:"not null"`
	Tone        string    `json:"tone" gorm:"not null"`
	HoursStart  string    `json:"hours_start" gorm:"type:varchar(5);not null"`
	HoursEnd    string    `json:"hours_end" gorm:"type:varchar(5);not null"`
	SupportType string    `json:"support_type" gorm:"not null"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// PasswordReset is a single-use password reset grant. Only the SHA-256 of the
// token is stored.
type PasswordReset struct {
	BaseModel
	UserID    string     `json:"user_id" gorm:"index;not null"`
	TokenHash string     `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt    *time.Time `json:"used_at"`

	// Relationships
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Usable reports whether the grant can still be redeemed at now
func (p *PasswordReset) Usable(now time.Time) bool {
	return p.UsedAt == nil && now.Before(p.ExpiresAt)
}

// Contact is one entry of a user's contact book
type Contact struct {
	BaseModel
	UserID        string     `json:"user_id" gorm:"index;not null"`
	Name          string     `json:"name" gorm:"not null"`
	Phone         string     `json:"phone" gorm:"type:varchar(32);not null"`
	Email         string     `json:"email"`
	Company       string     `json:"company"`
	Tag           string     `json:"tag" gorm:"type:varchar(8);not null;default:cold"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at"`
	UnreadCount   int        `json:"unread_count" gorm:"not null;default:0"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	User     *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Messages []Message `json:"-" gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE"`
}

// Message is one entry of the conversation with a contact. Sentiment is
// scored for inbound messages only.
type Message struct {
	BaseModel
	ContactID  string  `json:"contact_id" gorm:"index;not null"`
	Text       string  `json:"text" gorm:"not null"`
	Sender     string  `json:"sender" gorm:"type:varchar(8);not null"`
	Status     string  `json:"status" gorm:"type:varchar(10);not null"`
	Sentiment  string  `json:"sentiment" gorm:"type:varchar(8)"`
	Confidence float64 `json:"confidence"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &Config{}, &BusinessProfile{}, &PasswordReset{},
		&Contact{}, &Message{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
