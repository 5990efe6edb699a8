package web

import (
	"context"

	"github.com/optivoo/crm/internal/crm"
	"github.com/optivoo/crm/internal/onboarding"
	"github.com/optivoo/crm/internal/session"
)

// Backend is everything the web front end needs from the authentication
// and CRM collaborator. Both the API client and the in-memory stub satisfy it.
type Backend interface {
	session.Authenticator
	session.Registrar
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, resetToken, password string) error
	GetOnboarding(ctx context.Context, token string) (onboarding.Profile, error)
	SaveOnboarding(ctx context.Context, token string, p onboarding.Profile) (session.Identity, error)
	CRM
}

// CRM is the contact book of the signed-in account. Unknown ids fail with
// crm.ErrNotFound and rejected input with crm.ErrInvalid.
type CRM interface {
	ListContacts(ctx context.Context, token, query string) ([]crm.Contact, error)
	GetContact(ctx context.Context, token, id string) (crm.Contact, error)
	CreateContact(ctx context.Context, token string, in crm.ContactInput) (crm.Contact, error)
	UpdateContact(ctx context.Context, token, id string, patch crm.ContactPatch) (crm.Contact, error)
	DeleteContact(ctx context.Context, token, id string) error
	Messages(ctx context.Context, token, contactID string) ([]crm.Message, error)
	SendMessage(ctx context.Context, token, contactID, text string) (crm.Message, error)
	MarkAsRead(ctx context.Context, token, contactID string) error
	Templates(ctx context.Context, token string) ([]crm.Template, error)
	AnalyzeSentiment(ctx context.Context, token, text string) (crm.Analysis, error)
	Overview(ctx context.Context, token string) (crm.Overview, error)
}
