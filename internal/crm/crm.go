// Package crm holds the contact book, the conversation history of each
// contact, the canned reply templates and the sentiment scoring applied to
// inbound messages.
package crm

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid input")
	ErrEmptyMessage = errors.New("message text is empty")
)

// MaxMessageLength bounds a single message, in characters
const MaxMessageLength = 4096

// Tag is the lead temperature of a contact
type Tag string

const (
	TagHot  Tag = "hot"
	TagWarm Tag = "warm"
	TagCold Tag = "cold"
)

// Tags in display order
var Tags = []Tag{TagHot, TagWarm, TagCold}

// Sender says who wrote a message
type Sender string

const (
	SenderUser    Sender = "user"
	SenderContact Sender = "contact"
)

// Status is the delivery state of a message
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// Contact is one entry of an account's contact book
type Contact struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email,omitempty"`
	Company       string     `json:"company,omitempty"`
	Tag           Tag        `json:"tag"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UnreadCount   int        `json:"unread_count"`
	Online        bool       `json:"online"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Input returns the editable fields of c
func (c Contact) Input() ContactInput {
	return ContactInput{Name: c.Name, Phone: c.Phone, Email: c.Email, Company: c.Company, Tag: c.Tag}
}

// ContactInput is what a caller supplies to create a contact
type ContactInput struct {
	Name    string `json:"name" validate:"required,max=120"`
	Phone   string `json:"phone" validate:"required,max=32"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Company string `json:"company,omitempty" validate:"max=120"`
	Tag     Tag    `json:"tag,omitempty" validate:"omitempty,oneof=hot warm cold"`
}

// ContactPatch is a partial update; nil fields are left as they are
type ContactPatch struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Company *string `json:"company,omitempty"`
	Tag     *Tag    `json:"tag,omitempty"`
}

// Apply overlays the set fields of p on in
func (p ContactPatch) Apply(in ContactInput) ContactInput {
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Phone != nil {
		in.Phone = *p.Phone
	}
	if p.Email != nil {
		in.Email = *p.Email
	}
	if p.Company != nil {
		in.Company = *p.Company
	}
	if p.Tag != nil {
		in.Tag = *p.Tag
	}
	return in
}

var validate = validator.New()

// NormalizeContact trims in, defaults the tag to cold and validates it.
// Validation failures wrap ErrInvalid.
func NormalizeContact(in ContactInput) (ContactInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Company = strings.TrimSpace(in.Company)
	if in.Tag == "" {
		in.Tag = TagCold
	}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = strings.ToLower(fe.Field())
			}
			return in, fmt.Errorf("%w: contact %s", ErrInvalid, strings.Join(fields, ", "))
		}
		return in, err
	}
	return in, nil
}

// MessageText trims text and checks it can be sent
func MessageText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return "", fmt.Errorf("%w: message longer than %d characters", ErrInvalid, MaxMessageLength)
	}
	return text, nil
}

// Message is one entry of a conversation. Sentiment is only scored for
// messages the contact sent.
type Message struct {
	ID         string    `json:"id"`
	ContactID  string    `json:"contact_id"`
	Text       string    `json:"text"`
	Sender     Sender    `json:"sender"`
	Status     Status    `json:"status"`
	Sentiment  Sentiment `json:"sentiment,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Matches reports whether query occurs in the name, phone, e-mail or company
// of c, ignoring case. The empty query matches every contact.
func Matches(c Contact, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{c.Name, c.Phone, c.Email, c.Company} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Filter keeps the contacts matching query, in order
func Filter(contacts []Contact, query string) []Contact {
	out := make([]Contact, 0, len(contacts))
	for _, c := range contacts {
		if Matches(c, query) {
			out = append(out, c)
		}
	}
	return out
}

// Overview is the dashboard summary of an account's book
type Overview struct {
	Contacts  int              `json:"contacts"`
	HotLeads  int              `json:"hot_leads"`
	Unread    int              `json:"unread"`
	Sentiment SentimentSummary `json:"sentiment"`
}

// Summarize builds the overview from the book and every message in it
func Summarize(contacts []Contact, messages []Message) Overview {
	o := Overview{Contacts: len(contacts)}
	for _, c := range contacts {
		if c.Tag == TagHot {
			o.HotLeads++
		}
		o.Unread += c.UnreadCount
	}
	for _, m := range messages {
		if m.Sender == SenderContact {
			o.Sentiment.add(m.Sentiment)
		}
	}
	return o
}
