package crm

import (
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type book struct {
	contacts []*Contact
	messages []Message
}

func (b *book) find(id string) (int, *Contact) {
	for i, c := range b.contacts {
		if c.ID == id {
			return i, c
		}
	}
	return -1, nil
}

// Memory keeps one contact book per owner in memory. Every method is safe
// for concurrent use.
type Memory struct {
	now func() time.Time

	mu    sync.Mutex
	books map[string]*book
}

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{now: time.Now, books: make(map[string]*book)}
}

func (m *Memory) bookLocked(owner string) *book {
	b, ok := m.books[owner]
	if !ok {
		b = &book{}
		m.books[owner] = b
	}
	return b
}

func (m *Memory) contactLocked(owner, id string) (*book, *Contact, error) {
	b := m.bookLocked(owner)
	if _, c := b.find(id); c != nil {
		return b, c, nil
	}
	return nil, nil, fmt.Errorf("contact %s: %w", id, ErrNotFound)
}

// Contacts lists the owner's contacts matching query, oldest first
func (m *Memory) Contacts(owner, query string) []Contact {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Contact, 0)
	for _, c := range m.bookLocked(owner).contacts {
		if Matches(*c, query) {
			out = append(out, *c)
		}
	}
	return out
}

// Contact returns one contact
func (m *Memory) Contact(owner, id string) (Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, c, err := m.contactLocked(owner, id)
	if err != nil {
		return Contact{}, err
	}
	return *c, nil
}

// CreateContact validates in and appends it to the owner's book
func (m *Memory) CreateContact(owner string, in ContactInput) (Contact, error) {
	in, err := NormalizeContact(in)
	if err != nil {
		return Contact{}, err
	}
	c := &Contact{
		ID:        ulid.Make().String(),
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Company:   in.Company,
		Tag:       in.Tag,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bookLocked(owner)
	b.contacts = append(b.contacts, c)
	return *c, nil
}

// UpdateContact applies patch after validating the result
func (m *Memory) UpdateContact(owner, id string, patch ContactPatch) (Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, c, err := m.contactLocked(owner, id)
	if err != nil {
		return Contact{}, err
	}
	in, err := NormalizeContact(patch.Apply(c.Input()))
	if err != nil {
		return Contact{}, err
	}
	c.Name, c.Phone, c.Email, c.Company, c.Tag = in.Name, in.Phone, in.Email, in.Company, in.Tag
	return *c, nil
}

// DeleteContact removes a contact and its conversation
func (m *Memory) DeleteContact(owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bookLocked(owner)
	i, c := b.find(id)
	if c == nil {
		return fmt.Errorf("contact %s: %w", id, ErrNotFound)
	}
	b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
	kept := b.messages[:0]
	for _, msg := range b.messages {
		if msg.ContactID != id {
			kept = append(kept, msg)
		}
	}
	b.messages = kept
	return nil
}

// Messages returns the conversation with a contact, oldest first
func (m *Memory) Messages(owner, contactID string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, _, err := m.contactLocked(owner, contactID)
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0)
	for _, msg := range b.messages {
		if msg.ContactID == contactID {
			out = append(out, msg)
		}
	}
	return out, nil
}

// Send appends an outgoing message. The contact's preview moves to it and
// its unread count resets, since replying implies the thread was read.
func (m *Memory) Send(owner, contactID, text string) (Message, error) {
	text, err := MessageText(text)
	if err != nil {
		return Message{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	b, c, err := m.contactLocked(owner, contactID)
	if err != nil {
		return Message{}, err
	}
	msg := Message{
		ID:        ulid.Make().String(),
		ContactID: contactID,
		Text:      text,
		Sender:    SenderUser,
		Status:    StatusSent,
		CreatedAt: m.now(),
	}
	b.messages = append(b.messages, msg)
	c.LastMessage, c.LastMessageAt, c.UnreadCount = text, &msg.CreatedAt, 0
	return msg, nil
}

// Receive appends a message from the contact, scores its sentiment and
// bumps the unread count
func (m *Memory) Receive(owner, contactID, text string) (Message, error) {
	text, err := MessageText(text)
	if err != nil {
		return Message{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	b, c, err := m.contactLocked(owner, contactID)
	if err != nil {
		return Message{}, err
	}
	a := Analyze(text)
	msg := Message{
		ID:         ulid.Make().String(),
		ContactID:  contactID,
		Text:       text,
		Sender:     SenderContact,
		Status:     StatusDelivered,
		Sentiment:  a.Sentiment,
		Confidence: a.Confidence,
		CreatedAt:  m.now(),
	}
	b.messages = append(b.messages, msg)
	c.LastMessage, c.LastMessageAt = text, &msg.CreatedAt
	c.UnreadCount++
	return msg, nil
}

// MarkAsRead marks the contact's messages read and clears its unread count
func (m *Memory) MarkAsRead(owner, contactID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, c, err := m.contactLocked(owner, contactID)
	if err != nil {
		return err
	}
	for i := range b.messages {
		if b.messages[i].ContactID == contactID && b.messages[i].Sender == SenderContact {
			b.messages[i].Status = StatusRead
		}
	}
	c.UnreadCount = 0
	return nil
}

// Overview summarizes the owner's book
func (m *Memory) Overview(owner string) Overview {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bookLocked(owner)
	contacts := make([]Contact, len(b.contacts))
	for i, c := range b.contacts {
		contacts[i] = *c
	}
	return Summarize(contacts, b.messages)
}

type seedMessage struct {
	contact string
	sender  Sender
	text    string
	ago     time.Duration
}

// Seed fills the owner's book with the demo contacts and conversations.
// Seeding an owner that already has contacts does nothing.
func (m *Memory) Seed(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bookLocked(owner)
	if len(b.contacts) > 0 {
		return
	}

	now := m.now()
	day := 24 * time.Hour
	b.contacts = []*Contact{
		{ID: "1", Name: "Maria Silva", Phone: "+55 11 99999-9999", Email: "maria.silva@email.com", Company: "Empresa ABC", Tag: TagHot, Online: true, CreatedAt: now.Add(-30 * day)},
		{ID: "2", Name: "João Santos", Phone: "+55 11 88888-8888", Email: "joao.santos@empresa.com", Company: "Tech Solutions", Tag: TagWarm, CreatedAt: now.Add(-31 * day)},
		{ID: "3", Name: "Ana Pereira", Phone: "+55 11 77777-7777", Email: "ana@startup.com", Company: "StartupXYZ", Tag: TagCold, CreatedAt: now.Add(-32 * day)},
		{ID: "4", Name: "Carlos Oliveira", Phone: "+55 11 66666-6666", Email: "carlos@negocio.com", Company: "Negócio Digital", Tag: TagHot, Online: true, CreatedAt: now.Add(-33 * day)},
		{ID: "5", Name: "Luciana Costa", Phone: "+55 11 55555-5555", Email: "luciana@consultoria.com", Company: "Consultoria Plus", Tag: TagWarm, CreatedAt: now.Add(-34 * day)},
	}

	script := []seedMessage{
		{"2", SenderContact, "Bom dia! Vi sua empresa no LinkedIn.", day + 4*time.Hour},
		{"2", SenderUser, "Olá João! Obrigado pelo contato. Em que posso ajudá-lo?", day + 3*time.Hour + 55*time.Minute},
		{"2", SenderContact, "Quando podemos marcar uma reunião?", day + 3*time.Hour},
		{"3", SenderContact, "Obrigado pelo atendimento!", day + time.Hour},
		{"5", SenderContact, "Vou analisar a proposta e retorno", day},
		{"4", SenderContact, "Preciso de uma proposta urgente", 2 * time.Hour},
		{"1", SenderContact, "Olá, gostaria de saber mais sobre seus serviços.", 30 * time.Minute},
		{"1", SenderContact, "Estou interessada no pacote de marketing digital.", 28 * time.Minute},
		{"1", SenderUser, "Olá Maria! Tudo bem? Agradeço seu interesse em nossos serviços.", 25 * time.Minute},
		{"1", SenderUser, "Nosso pacote de marketing digital inclui gestão de redes sociais, SEO e campanhas pagas. Gostaria de receber uma proposta?", 24 * time.Minute},
		{"1", SenderContact, "Sim, por favor. Qual seria o valor?", 16 * time.Minute},
	}
	unread := map[string]int{"1": 2, "4": 1}
	for _, s := range script {
		_, c := b.find(s.contact)
		msg := Message{
			ID:        ulid.Make().String(),
			ContactID: s.contact,
			Text:      s.text,
			Sender:    s.sender,
			Status:    StatusRead,
			CreatedAt: now.Add(-s.ago),
		}
		if s.sender == SenderContact {
			a := Analyze(s.text)
			msg.Sentiment, msg.Confidence = a.Sentiment, a.Confidence
			if unread[s.contact] > 0 {
				msg.Status = StatusDelivered
			}
		}
		b.messages = append(b.messages, msg)
		at := msg.CreatedAt
		c.LastMessage, c.LastMessageAt = msg.Text, &at
	}
	for id, n := range unread {
		_, c := b.find(id)
		c.UnreadCount = n
	}
}
