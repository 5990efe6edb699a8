package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/optivoo/crm/internal/crm"
)

// crmError maps API answers onto the crm sentinel errors
func crmError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", crm.ErrNotFound, apiErr.Message)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", crm.ErrInvalid, apiErr.Message)
	}
	return err
}

func contactPath(id string) string {
	return "/api/contacts/" + url.PathEscape(id)
}

type messageRequest struct {
	Text string `json:"text"`
}

// ListContacts returns the contact book, filtered by query when set
func (c *Client) ListContacts(ctx context.Context, token, query string) ([]crm.Contact, error) {
	path := "/api/contacts"
	if query != "" {
		path += "?" + url.Values{"q": {query}}.Encode()
	}
	var contacts []crm.Contact
	if err := c.do(ctx, http.MethodGet, path, token, nil, &contacts, http.StatusOK); err != nil {
		return nil, crmError(err)
	}
	return contacts, nil
}

// GetContact returns one contact
func (c *Client) GetContact(ctx context.Context, token, id string) (crm.Contact, error) {
	var contact crm.Contact
	if err := c.do(ctx, http.MethodGet, contactPath(id), token, nil, &contact, http.StatusOK); err != nil {
		return crm.Contact{}, crmError(err)
	}
	return contact, nil
}

// CreateContact adds a contact to the book
func (c *Client) CreateContact(ctx context.Context, token string, in crm.ContactInput) (crm.Contact, error) {
	var contact crm.Contact
	if err := c.do(ctx, http.MethodPost, "/api/contacts", token, in, &contact, http.StatusCreated); err != nil {
		return crm.Contact{}, crmError(err)
	}
	return contact, nil
}

// UpdateContact applies the set fields of patch
func (c *Client) UpdateContact(ctx context.Context, token, id string, patch crm.ContactPatch) (crm.Contact, error) {
	var contact crm.Contact
	if err := c.do(ctx, http.MethodPatch, contactPath(id), token, patch, &contact, http.StatusOK); err != nil {
		return crm.Contact{}, crmError(err)
	}
	return contact, nil
}

// DeleteContact removes a contact and its conversation
func (c *Client) DeleteContact(ctx context.Context, token, id string) error {
	return crmError(c.do(ctx, http.MethodDelete, contactPath(id), token, nil, nil, http.StatusNoContent))
}

// Messages returns the conversation with a contact
func (c *Client) Messages(ctx context.Context, token, contactID string) ([]crm.Message, error) {
	var messages []crm.Message
	if err := c.do(ctx, http.MethodGet, contactPath(contactID)+"/messages", token, nil, &messages, http.StatusOK); err != nil {
		return nil, crmError(err)
	}
	return messages, nil
}

// SendMessage sends text to a contact
func (c *Client) SendMessage(ctx context.Context, token, contactID, text string) (crm.Message, error) {
	var msg crm.Message
	if err := c.do(ctx, http.MethodPost, contactPath(contactID)+"/messages", token, messageRequest{Text: text}, &msg, http.StatusCreated); err != nil {
		return crm.Message{}, crmError(err)
	}
	return msg, nil
}

// ReceiveMessage records a message the contact sent on another channel
func (c *Client) ReceiveMessage(ctx context.Context, token, contactID, text string) (crm.Message, error) {
	var msg crm.Message
	if err := c.do(ctx, http.MethodPost, contactPath(contactID)+"/messages/inbound", token, messageRequest{Text: text}, &msg, http.StatusCreated); err != nil {
		return crm.Message{}, crmError(err)
	}
	return msg, nil
}

// MarkAsRead clears the unread count of a contact
func (c *Client) MarkAsRead(ctx context.Context, token, contactID string) error {
	return crmError(c.do(ctx, http.MethodPost, contactPath(contactID)+"/read", token, nil, nil, http.StatusNoContent))
}

// Templates returns the composer templates
func (c *Client) Templates(ctx context.Context, token string) ([]crm.Template, error) {
	var resp struct {
		Templates []crm.Template `json:"templates"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/templates", token, nil, &resp, http.StatusOK); err != nil {
		return nil, crmError(err)
	}
	return resp.Templates, nil
}

// AnalyzeSentiment scores text without storing it
func (c *Client) AnalyzeSentiment(ctx context.Context, token, text string) (crm.Analysis, error) {
	var a crm.Analysis
	if err := c.do(ctx, http.MethodPost, "/api/sentiment/analyze", token, messageRequest{Text: text}, &a, http.StatusOK); err != nil {
		return crm.Analysis{}, crmError(err)
	}
	return a, nil
}

// Overview returns the dashboard summary
func (c *Client) Overview(ctx context.Context, token string) (crm.Overview, error) {
	var o crm.Overview
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/overview", token, nil, &o, http.StatusOK); err != nil {
		return crm.Overview{}, crmError(err)
	}
	return o, nil
}
