package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/optivoo/crm/internal/crm"
	"github.com/optivoo/crm/internal/session"
)

const (
	msgCRMFailed       = "Could not reach your contacts. Try again."
	msgContactCreated  = "Contact added."
	msgContactUpdated  = "Contact updated."
	msgContactDeleted  = "Contact removed."
	msgTextRequired    = "Enter some text to analyze."
	msgUnknownTemplate = "That template does not exist."
)

// Sections without data of their own yet
var staticSections = map[string]bool{
	"proposals":    true,
	"calendar":     true,
	"ai-assistant": true,
	"settings":     true,
}

func (s *Server) token(c *gin.Context) string {
	return currentSession(c).manager.Snapshot().Token
}

func dashboardView(section string, data gin.H) gin.H {
	view := gin.H{"section": section}
	for k, v := range data {
		view[k] = v
	}
	return view
}

// crmFailure answers a backend error: unknown records are a 404, anything
// else a 502 with an error notice
func (s *Server) crmFailure(c *gin.Context, err error, section string) {
	if errors.Is(err, crm.ErrNotFound) {
		s.render(c, http.StatusNotFound, "not-found", nil)
		return
	}
	s.logger.Warn().Err(err).Str("section", section).Msg("CRM backend request failed")
	currentSession(c).addNotice(session.NoticeError, msgCRMFailed)
	s.render(c, http.StatusBadGateway, "dashboard", dashboardView(section, nil))
}

func isInvalid(err error) bool {
	return errors.Is(err, crm.ErrInvalid) || errors.Is(err, crm.ErrEmptyMessage)
}

func (s *Server) overviewPage(c *gin.Context) {
	ctx := c.Request.Context()
	o, err := s.backend.Overview(ctx, s.token(c))
	if err != nil {
		s.crmFailure(c, err, "overview")
		return
	}
	contacts, err := s.backend.ListContacts(ctx, s.token(c), "")
	if err != nil {
		s.crmFailure(c, err, "overview")
		return
	}

	hot := make([]crm.Contact, 0)
	for _, contact := range contacts {
		if contact.Tag == crm.TagHot {
			hot = append(hot, contact)
		}
	}
	s.render(c, http.StatusOK, "dashboard", dashboardView("overview", gin.H{
		"overview":  o,
		"hot_leads": hot,
	}))
}

func (s *Server) sectionPage(c *gin.Context) {
	section := c.Param("section")
	if !staticSections[section] {
		s.render(c, http.StatusNotFound, "not-found", nil)
		return
	}
	s.render(c, http.StatusOK, "dashboard", dashboardView(section, nil))
}

func (s *Server) contactsView(c *gin.Context, status int, query string, form gin.H) {
	contacts, err := s.backend.ListContacts(c.Request.Context(), s.token(c), query)
	if err != nil {
		s.crmFailure(c, err, "contacts")
		return
	}
	s.render(c, status, "dashboard", dashboardView("contacts", gin.H{
		"query":    query,
		"contacts": contacts,
		"tags":     crm.Tags,
		"form":     form,
	}))
}

func (s *Server) contactsPage(c *gin.Context) {
	s.contactsView(c, http.StatusOK, strings.TrimSpace(c.Query("q")), nil)
}

func (s *Server) contactsCreate(c *gin.Context) {
	rs := currentSession(c)
	in := crm.ContactInput{
		Name:    c.PostForm("name"),
		Phone:   c.PostForm("phone"),
		Email:   c.PostForm("email"),
		Company: c.PostForm("company"),
		Tag:     crm.Tag(c.PostForm("tag")),
	}

	created, err := s.backend.CreateContact(c.Request.Context(), s.token(c), in)
	if isInvalid(err) {
		rs.addNotice(session.NoticeError, err.Error())
		s.contactsView(c, http.StatusBadRequest, "", gin.H{
			"name": in.Name, "phone": in.Phone, "email": in.Email, "company": in.Company, "tag": in.Tag,
		})
		return
	}
	if err != nil {
		s.crmFailure(c, err, "contacts")
		return
	}

	s.logger.Debug().Str("contact_id", created.ID).Msg("Contact added from the dashboard")
	rs.addNotice(session.NoticeSuccess, msgContactCreated)
	s.redirect(c, "/dashboard/contacts")
}

// contactsUpdate changes only the fields present in the form
func (s *Server) contactsUpdate(c *gin.Context) {
	rs := currentSession(c)
	var patch crm.ContactPatch
	for field, dst := range map[string]**string{
		"name":    &patch.Name,
		"phone":   &patch.Phone,
		"email":   &patch.Email,
		"company": &patch.Company,
	} {
		if v, ok := c.GetPostForm(field); ok {
			*dst = &v
		}
	}
	if v, ok := c.GetPostForm("tag"); ok {
		tag := crm.Tag(v)
		patch.Tag = &tag
	}

	_, err := s.backend.UpdateContact(c.Request.Context(), s.token(c), c.Param("id"), patch)
	switch {
	case isInvalid(err):
		rs.addNotice(session.NoticeError, err.Error())
	case err != nil:
		s.crmFailure(c, err, "contacts")
		return
	default:
		rs.addNotice(session.NoticeSuccess, msgContactUpdated)
	}
	s.redirect(c, "/dashboard/contacts")
}

func (s *Server) contactsDelete(c *gin.Context) {
	if err := s.backend.DeleteContact(c.Request.Context(), s.token(c), c.Param("id")); err != nil {
		s.crmFailure(c, err, "contacts")
		return
	}
	currentSession(c).addNotice(session.NoticeSuccess, msgContactDeleted)
	s.redirect(c, "/dashboard/contacts")
}

func (s *Server) inboxPage(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	contacts, err := s.backend.ListContacts(c.Request.Context(), s.token(c), query)
	if err != nil {
		s.crmFailure(c, err, "whatsapp")
		return
	}
	s.render(c, http.StatusOK, "dashboard", dashboardView("whatsapp", gin.H{
		"query":         query,
		"conversations": contacts,
	}))
}

// conversationPage shows one thread and marks it read
func (s *Server) conversationPage(c *gin.Context) {
	ctx := c.Request.Context()
	token := s.token(c)
	id := c.Param("id")

	contact, err := s.backend.GetContact(ctx, token, id)
	if err != nil {
		s.crmFailure(c, err, "whatsapp")
		return
	}
	messages, err := s.backend.Messages(ctx, token, id)
	if err != nil {
		s.crmFailure(c, err, "whatsapp")
		return
	}
	templates, err := s.backend.Templates(ctx, token)
	if err != nil {
		s.crmFailure(c, err, "whatsapp")
		return
	}
	if contact.UnreadCount > 0 {
		if err := s.backend.MarkAsRead(ctx, token, id); err != nil {
			s.logger.Warn().Err(err).Str("contact_id", id).Msg("Failed to mark conversation read")
		} else {
			contact.UnreadCount = 0
		}
	}

	s.render(c, http.StatusOK, "dashboard", dashboardView("whatsapp", gin.H{
		"contact":   contact,
		"messages":  messages,
		"templates": templates,
	}))
}

// conversationSend sends the typed text, or the chosen template when no
// text was typed
func (s *Server) conversationSend(c *gin.Context) {
	rs := currentSession(c)
	id := c.Param("id")
	back := "/dashboard/whatsapp/" + id

	text := c.PostForm("text")
	if strings.TrimSpace(text) == "" {
		if tplID := c.PostForm("template"); tplID != "" {
			tpl, err := crm.FindTemplate(tplID)
			if err != nil {
				rs.addNotice(session.NoticeError, msgUnknownTemplate)
				s.redirect(c, back)
				return
			}
			text = tpl.Content
		}
	}

	_, err := s.backend.SendMessage(c.Request.Context(), s.token(c), id, text)
	if isInvalid(err) {
		rs.addNotice(session.NoticeError, err.Error())
		s.redirect(c, back)
		return
	}
	if err != nil {
		s.crmFailure(c, err, "whatsapp")
		return
	}
	s.redirect(c, back)
}

func (s *Server) analyticsView(c *gin.Context, status int, extra gin.H) {
	o, err := s.backend.Overview(c.Request.Context(), s.token(c))
	if err != nil {
		s.crmFailure(c, err, "analytics")
		return
	}
	data := gin.H{
		"sentiment": o.Sentiment,
		"scored":    o.Sentiment.Total(),
	}
	for k, v := range extra {
		data[k] = v
	}
	s.render(c, status, "dashboard", dashboardView("analytics", data))
}

func (s *Server) analyticsPage(c *gin.Context) {
	s.analyticsView(c, http.StatusOK, nil)
}

// analyticsSubmit scores a text typed into the sentiment tester
func (s *Server) analyticsSubmit(c *gin.Context) {
	text := strings.TrimSpace(c.PostForm("text"))
	if text == "" {
		currentSession(c).addNotice(session.NoticeError, msgTextRequired)
		s.analyticsView(c, http.StatusBadRequest, nil)
		return
	}

	a, err := s.backend.AnalyzeSentiment(c.Request.Context(), s.token(c), text)
	if err != nil {
		s.crmFailure(c, err, "analytics")
		return
	}
	s.analyticsView(c, http.StatusOK, gin.H{"text": text, "analysis": a})
}
