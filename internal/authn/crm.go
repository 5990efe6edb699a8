package authn

import (
	"context"

	"github.com/optivoo/crm/internal/crm"
)

// owner resolves the contact book behind token. Tokens the stub did not
// issue share the demo book, matching Validate.
func (s *Stub) owner(ctx context.Context, token string) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.accountLocked(token); a != nil {
		return a.identity.ID, nil
	}
	return DemoID, nil
}

// ListContacts returns the book of the token's account
func (s *Stub) ListContacts(ctx context.Context, token, query string) ([]crm.Contact, error) {
	owner, err := s.owner(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.book.Contacts(owner, query), nil
}

func (s *Stub) GetContact(ctx context.Context, token, id string) (crm.Contact, error) {
	owner, err := s.owner(ctx, token)
	if err != nil {
		return crm.Contact{}, err
	}
	return s.book.Contact(owner, id)
}

func (s *Stub) CreateContact(ctx context.Context, token string, in crm.ContactInput) (crm.Contact, error) {
	owner, err := s.owner(ctx, token)
	if err != nil {
		return crm.Contact{}, err
	}
	c, err := s.book.CreateContact(owner, in)
	if err == nil {
		s.log.Debug().Str("owner", owner).Str("contact_id", c.ID).Msg("Stub contact created")
	}
	return c, err
}

func (s *Stub) UpdateContact(ctx context.Context, token, id string, patch crm.ContactPatch) (crm.Contact, error) {
	owner, err := s.owner(ctx, token)
	if err != nil {
		return crm.Contact{}, err
	}
	return s.book.UpdateContact(owner, id, patch)
}

func (s *Stub) DeleteContact(ctx context.Context, token, id string) error {
	owner, err := s.owner(ctx, token)
	if err != nil {
		return err
	}
	return s.book.DeleteContact(owner, id)
}

func (s *Stub) Messages(ctx context.Context, token, contactID string) ([]crm.Message, error) {
	owner, err := s.owner(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.book.Messages(owner, contactID)
}

func (s *Stub) SendMessage(ctx context.Context, token, contactID, text string) (crm.Message, error) {
	owner, err := s.owner(ctx, token)
	if err != nil {
		return crm.Message{}, err
	}
	return s.book.Send(owner, contactID, text)
}

// ReceiveMessage records a message from the contact, as a channel webhook would
func (s *Stub) ReceiveMessage(ctx context.Context, token, contactID, text string) (crm.Message, error) {
	owner, err := s.owner(ctx, token)
	if err != nil {
		return crm.Message{}, err
	}
	return s.book.Receive(owner, contactID, text)
}

func (s *Stub) MarkAsRead(ctx context.Context, token, contactID string) error {
	owner, err := s.owner(ctx, token)
	if err != nil {
		return err
	}
	return s.book.MarkAsRead(owner, contactID)
}

func (s *Stub) Templates(ctx context.Context, token string) ([]crm.Template, error) {
	if _, err := s.owner(ctx, token); err != nil {
		return nil, err
	}
	return crm.Templates, nil
}

func (s *Stub) AnalyzeSentiment(ctx context.Context, token, text string) (crm.Analysis, error) {
	if _, err := s.owner(ctx, token); err != nil {
		return crm.Analysis{}, err
	}
	return crm.Analyze(text), nil
}

func (s *Stub) Overview(ctx context.Context, token string) (crm.Overview, error) {
	owner, err := s.owner(ctx, token)
	if err != nil {
		return crm.Overview{}, err
	}
	return s.book.Overview(owner), nil
}
