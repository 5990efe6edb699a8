package crm

// Template is a canned reply offered by the message composer
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

var Templates = []Template{
	{ID: "welcome", Name: "Welcome", Content: "Hello! Thanks for getting in touch. How can we help you today?"},
	{ID: "follow_up", Name: "Follow-up", Content: "Hello! I'm following up on our conversation. Any questions about our proposal?"},
	{ID: "meeting", Name: "Meeting", Content: "Could we schedule a meeting to talk through your goals? I have a few slots open this week."},
	{ID: "proposal", Name: "Send proposal", Content: "As discussed, our commercial proposal is attached. Happy to clarify anything!"},
	{ID: "thanks", Name: "Thanks", Content: "Thank you very much for your time and interest in our services. We're always here to help!"},
}

// FindTemplate returns the template with the given id
func FindTemplate(id string) (Template, error) {
	for _, t := range Templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, ErrNotFound
}
