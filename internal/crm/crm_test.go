package crm

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		sentiment  Sentiment
		confidence float64
	}{
		{name: "single positive", text: "Obrigado pelo atendimento!", sentiment: Positive, confidence: 0.7},
		{name: "two positives", text: "Excelente serviço, recomendo", sentiment: Positive, confidence: 0.8},
		{name: "english positive", text: "Thanks, that was perfect", sentiment: Positive, confidence: 0.8},
		{name: "negative", text: "Tive um problema com o pedido", sentiment: Negative, confidence: 0.7},
		{name: "negated satisfaction is negative", text: "Estou insatisfeito", sentiment: Negative, confidence: 0.7},
		{name: "mixed cancels out", text: "ótimo produto mas entrega ruim", sentiment: Neutral, confidence: NeutralConfidence},
		{name: "no keywords", text: "Quando podemos marcar uma reunião?", sentiment: Neutral, confidence: NeutralConfidence},
		{name: "empty", text: "", sentiment: Neutral, confidence: NeutralConfidence},
		{name: "case insensitive", text: "PÉSSIMO", sentiment: Negative, confidence: 0.7},
		{name: "capped", text: strings.Repeat("great ", 10), sentiment: Positive, confidence: MaxConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.text)
			assert.Equal(t, tt.sentiment, got.Sentiment)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
		})
	}
}

func TestMatches(t *testing.T) {
	c := Contact{Name: "João Santos", Phone: "+55 11 88888-8888", Email: "joao.santos@empresa.com", Company: "Tech Solutions"}

	for _, q := range []string{"", "  ", "joão", "JOÃO", "88888", "@empresa", "tech sol"} {
		assert.True(t, Matches(c, q), "query %q", q)
	}
	for _, q := range []string{"maria", "77777", "startup"} {
		assert.False(t, Matches(c, q), "query %q", q)
	}
}

func TestNormalizeContact(t *testing.T) {
	in, err := NormalizeContact(ContactInput{Name: "  Ana ", Phone: " +55 11 7 ", Email: " Ana@Startup.COM "})
	require.NoError(t, err)
	assert.Equal(t, ContactInput{Name: "Ana", Phone: "+55 11 7", Email: "ana@startup.com", Tag: TagCold}, in)

	tests := []struct {
		name string
		in   ContactInput
		want string
	}{
		{name: "missing name", in: ContactInput{Phone: "1"}, want: "name"},
		{name: "missing phone", in: ContactInput{Name: "Ana"}, want: "phone"},
		{name: "bad email", in: ContactInput{Name: "Ana", Phone: "1", Email: "nope"}, want: "email"},
		{name: "unknown tag", in: ContactInput{Name: "Ana", Phone: "1", Tag: "boiling"}, want: "tag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeContact(tt.in)
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMessageText(t *testing.T) {
	text, err := MessageText("  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", text)

	_, err = MessageText(" \n ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = MessageText(strings.Repeat("é", MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestFindTemplate(t *testing.T) {
	tpl, err := FindTemplate("meeting")
	require.NoError(t, err)
	assert.Equal(t, "Meeting", tpl.Name)

	_, err = FindTemplate("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func newTestMemory() *Memory {
	m := NewMemory()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	m.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		base = base.Add(time.Second)
		return base
	}
	return m
}

func TestMemory_Seed(t *testing.T) {
	m := newTestMemory()
	m.Seed("owner")
	m.Seed("owner")

	contacts := m.Contacts("owner", "")
	require.Len(t, contacts, 5)
	assert.Equal(t, "Maria Silva", contacts[0].Name)
	assert.Equal(t, 2, contacts[0].UnreadCount)
	assert.Equal(t, "Sim, por favor. Qual seria o valor?", contacts[0].LastMessage)

	assert.Equal(t, Overview{
		Contacts:  5,
		HotLeads:  2,
		Unread:    3,
		Sentiment: SentimentSummary{Positive: 1, Neutral: 7},
	}, m.Overview("owner"))

	assert.Empty(t, m.Contacts("someone-else", ""))
}

func TestMemory_ContactLifecycle(t *testing.T) {
	m := newTestMemory()

	c, err := m.CreateContact("owner", ContactInput{Name: "Ana Pereira", Phone: "+55 11 77777-7777", Company: "StartupXYZ"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, TagCold, c.Tag)

	_, err = m.CreateContact("owner", ContactInput{Name: "Bruno Lima", Phone: "+55 21 1234-5678"})
	require.NoError(t, err)

	found := m.Contacts("owner", "startup")
	require.Len(t, found, 1)
	assert.Equal(t, c.ID, found[0].ID)

	hot := TagHot
	company := "StartupXYZ Ltda"
	updated, err := m.UpdateContact("owner", c.ID, ContactPatch{Tag: &hot, Company: &company})
	require.NoError(t, err)
	assert.Equal(t, TagHot, updated.Tag)
	assert.Equal(t, "StartupXYZ Ltda", updated.Company)
	assert.Equal(t, "Ana Pereira", updated.Name)

	empty := ""
	_, err = m.UpdateContact("owner", c.ID, ContactPatch{Name: &empty})
	assert.ErrorIs(t, err, ErrInvalid)
	got, err := m.Contact("owner", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Pereira", got.Name, "rejected patch must not apply")

	_, err = m.Contact("intruder", c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.Send("owner", c.ID, "hello")
	require.NoError(t, err)
	require.NoError(t, m.DeleteContact("owner", c.ID))
	_, err = m.Messages("owner", c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, m.Contacts("owner", ""), 1)

	assert.ErrorIs(t, m.DeleteContact("owner", c.ID), ErrNotFound)
}

func TestMemory_Conversation(t *testing.T) {
	m := newTestMemory()
	c, err := m.CreateContact("owner", ContactInput{Name: "Carlos", Phone: "1"})
	require.NoError(t, err)

	in1, err := m.Receive("owner", c.ID, "Tive um problema com a fatura")
	require.NoError(t, err)
	assert.Equal(t, SenderContact, in1.Sender)
	assert.Equal(t, StatusDelivered, in1.Status)
	assert.Equal(t, Negative, in1.Sentiment)

	_, err = m.Receive("owner", c.ID, "Pode me ajudar?")
	require.NoError(t, err)

	got, err := m.Contact("owner", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UnreadCount)
	assert.Equal(t, "Pode me ajudar?", got.LastMessage)

	require.NoError(t, m.MarkAsRead("owner", c.ID))
	msgs, err := m.Messages("owner", c.ID)
	require.NoError(t, err)
	for _, msg := range msgs {
		assert.Equal(t, StatusRead, msg.Status)
	}
	got, _ = m.Contact("owner", c.ID)
	assert.Zero(t, got.UnreadCount)

	_, err = m.Receive("owner", c.ID, "Alô?")
	require.NoError(t, err)
	out, err := m.Send("owner", c.ID, "  Claro, vou verificar.  ")
	require.NoError(t, err)
	assert.Equal(t, "Claro, vou verificar.", out.Text)
	assert.Equal(t, SenderUser, out.Sender)
	assert.Equal(t, StatusSent, out.Status)
	assert.Empty(t, out.Sentiment)

	got, _ = m.Contact("owner", c.ID)
	assert.Zero(t, got.UnreadCount)
	assert.Equal(t, "Claro, vou verificar.", got.LastMessage)
	require.NotNil(t, got.LastMessageAt)
	assert.Equal(t, out.CreatedAt, *got.LastMessageAt)

	msgs, _ = m.Messages("owner", c.ID)
	require.Len(t, msgs, 4)
	assert.Equal(t, out.ID, msgs[3].ID)

	_, err = m.Send("owner", c.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = m.Send("owner", "missing", "hi")
	assert.True(t, errors.Is(err, ErrNotFound))
}
