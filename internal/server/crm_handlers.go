package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/optivoo/crm/internal/crm"
	"github.com/optivoo/crm/internal/models"
)

// MessageRequest carries the text of a message
type MessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// TemplateResponse lists the composer templates
type TemplateResponse struct {
	Templates []crm.Template `json:"templates"`
}

func toContact(m *models.Contact) crm.Contact {
	return crm.Contact{
		ID:            m.ID,
		Name:          m.Name,
		Phone:         m.Phone,
		Email:         m.Email,
		Company:       m.Company,
		Tag:           crm.Tag(m.Tag),
		LastMessage:   m.LastMessage,
		LastMessageAt: m.LastMessageAt,
		UnreadCount:   m.UnreadCount,
		CreatedAt:     m.CreatedAt,
	}
}

func toMessage(m *models.Message) crm.Message {
	return crm.Message{
		ID:         m.ID,
		ContactID:  m.ContactID,
		Text:       m.Text,
		Sender:     crm.Sender(m.Sender),
		Status:     crm.Status(m.Status),
		Sentiment:  crm.Sentiment(m.Sentiment),
		Confidence: m.Confidence,
		CreatedAt:  m.CreatedAt,
	}
}

// loadContact fetches the :id contact of the signed-in user, answering 404
// for another user's contact
func (s *Server) loadContact(c *gin.Context) (*models.Contact, bool) {
	sessionData, _ := GetSessionData(c)

	var contact models.Contact
	err := s.db.Where("id = ? AND user_id = ?", c.Param("id"), sessionData.UserID).First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return nil, false
	}
	if err != nil {
		s.logger.Error().Err(err).Str("contact_id", c.Param("id")).Msg("Failed to load contact")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}
	return &contact, true
}

// @Summary List contacts
// @Description Lists the contact book, optionally filtered by a case-insensitive query over name, phone, email and company
// @Tags contacts
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search query"
// @Success 200 {array} crm.Contact
// @Router /api/contacts [get]
func (s *Server) listContacts(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var rows []models.Contact
	if err := s.db.Where("user_id = ?", sessionData.UserID).Order("created_at, id").Find(&rows).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to list contacts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	contacts := make([]crm.Contact, len(rows))
	for i := range rows {
		contacts[i] = toContact(&rows[i])
	}
	// SQLite LIKE folds ASCII only; names carry accents
	c.JSON(http.StatusOK, crm.Filter(contacts, c.Query("q")))
}

// @Summary Create contact
// @Tags contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body crm.ContactInput true "Contact"
// @Success 201 {object} crm.Contact
// @Failure 400 {object} map[string]interface{}
// @Router /api/contacts [post]
func (s *Server) createContact(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req crm.ContactInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := crm.NormalizeContact(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact := models.Contact{
		UserID:  sessionData.UserID,
		Name:    in.Name,
		Phone:   in.Phone,
		Email:   in.Email,
		Company: in.Company,
		Tag:     string(in.Tag),
	}
	if err := s.db.Create(&contact).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to create contact")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contact"})
		return
	}

	s.logger.Info().Str("user_id", sessionData.UserID).Str("contact_id", contact.ID).Msg("Contact created")
	c.JSON(http.StatusCreated, toContact(&contact))
}

// @Summary Get contact
// @Tags contacts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Success 200 {object} crm.Contact
// @Failure 404 {object} map[string]interface{}
// @Router /api/contacts/{id} [get]
func (s *Server) getContact(c *gin.Context) {
	contact, ok := s.loadContact(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toContact(contact))
}

// @Summary Update contact
// @Description Applies the fields present in the body
// @Tags contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Param request body crm.ContactPatch true "Changed fields"
// @Success 200 {object} crm.Contact
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/contacts/{id} [patch]
func (s *Server) updateContact(c *gin.Context) {
	contact, ok := s.loadContact(c)
	if !ok {
		return
	}

	var patch crm.ContactPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := crm.NormalizeContact(patch.Apply(toContact(contact).Input()))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact.Name, contact.Phone, contact.Email, contact.Company, contact.Tag = in.Name, in.Phone, in.Email, in.Company, string(in.Tag)
	if err := s.db.Model(contact).Select("name", "phone", "email", "company", "tag").Updates(contact).Error; err != nil {
		s.logger.Error().Err(err).Str("contact_id", contact.ID).Msg("Failed to update contact")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update contact"})
		return
	}
	c.JSON(http.StatusOK, toContact(contact))
}

// @Summary Delete contact
// @Description Removes the contact and its conversation
// @Tags contacts
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /api/contacts/{id} [delete]
func (s *Server) deleteContact(c *gin.Context) {
	contact, ok := s.loadContact(c)
	if !ok {
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contact_id = ?", contact.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(contact).Error
	})
	if err != nil {
		s.logger.Error().Err(err).Str("contact_id", contact.ID).Msg("Failed to delete contact")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contact"})
		return
	}

	s.logger.Info().Str("user_id", contact.UserID).Str("contact_id", contact.ID).Msg("Contact deleted")
	c.Status(http.StatusNoContent)
}

// @Summary List messages
// @Description Returns the conversation with a contact, oldest first
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Success 200 {array} crm.Message
// @Failure 404 {object} map[string]interface{}
// @Router /api/contacts/{id}/messages [get]
func (s *Server) listMessages(c *gin.Context) {
	contact, ok := s.loadContact(c)
	if !ok {
		return
	}

	var rows []models.Message
	if err := s.db.Where("contact_id = ?", contact.ID).Order("created_at, id").Find(&rows).Error; err != nil {
		s.logger.Error().Err(err).Str("contact_id", contact.ID).Msg("Failed to list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	messages := make([]crm.Message, len(rows))
	for i := range rows {
		messages[i] = toMessage(&rows[i])
	}
	c.JSON(http.StatusOK, messages)
}

// appendMessage stores a message and moves the contact's preview to it
func (s *Server) appendMessage(c *gin.Context, sender crm.Sender) {
	contact, ok := s.loadContact(c)
	if !ok {
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	text, err := crm.MessageText(req.Text)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := s.now()
	msg := models.Message{
		BaseModel: models.BaseModel{CreatedAt: now},
		ContactID: contact.ID,
		Text:      text,
		Sender:    string(sender),
		Status:    string(crm.StatusSent),
	}
	var unread interface{} = 0
	if sender == crm.SenderContact {
		a := crm.Analyze(text)
		msg.Status = string(crm.StatusDelivered)
		msg.Sentiment, msg.Confidence = string(a.Sentiment), a.Confidence
		unread = gorm.Expr("unread_count + 1")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(contact).Updates(map[string]interface{}{
			"last_message":    text,
			"last_message_at": now,
			"unread_count":    unread,
		}).Error
	})
	if err != nil {
		s.logger.Error().Err(err).Str("contact_id", contact.ID).Msg("Failed to store message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store message"})
		return
	}

	s.logger.Debug().
		Str("contact_id", contact.ID).
		Str("sender", msg.Sender).
		Str("sentiment", msg.Sentiment).
		Msg("Message stored")
	c.JSON(http.StatusCreated, toMessage(&msg))
}

// @Summary Send message
// @Description Sends a message to the contact and clears its unread count
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Param request body MessageRequest true "Message"
// @Success 201 {object} crm.Message
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/contacts/{id}/messages [post]
func (s *Server) sendMessage(c *gin.Context) {
	s.appendMessage(c, crm.SenderUser)
}

// @Summary Record inbound message
// @Description Stores a message from the contact, scores its sentiment and bumps the unread count
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Param request body MessageRequest true "Message"
// @Success 201 {object} crm.Message
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/contacts/{id}/messages/inbound [post]
func (s *Server) receiveMessage(c *gin.Context) {
	s.appendMessage(c, crm.SenderContact)
}

// @Summary Mark conversation read
// @Tags messages
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /api/contacts/{id}/read [post]
func (s *Server) markAsRead(c *gin.Context) {
	contact, ok := s.loadContact(c)
	if !ok {
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Message{}).
			Where("contact_id = ? AND sender = ?", contact.ID, string(crm.SenderContact)).
			Update("status", string(crm.StatusRead)).Error; err != nil {
			return err
		}
		return tx.Model(contact).Update("unread_count", 0).Error
	})
	if err != nil {
		s.logger.Error().Err(err).Str("contact_id", contact.ID).Msg("Failed to mark conversation read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List message templates
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TemplateResponse
// @Router /api/templates [get]
func (s *Server) listTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, TemplateResponse{Templates: crm.Templates})
}

// @Summary Analyze sentiment
// @Description Scores a text without storing it
// @Tags sentiment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MessageRequest true "Text"
// @Success 200 {object} crm.Analysis
// @Failure 400 {object} map[string]interface{}
// @Router /api/sentiment/analyze [post]
func (s *Server) analyzeSentiment(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, crm.Analyze(req.Text))
}

// @Summary Dashboard overview
// @Description Contact, hot lead and unread counts plus the sentiment of inbound messages
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} crm.Overview
// @Router /api/dashboard/overview [get]
func (s *Server) overview(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var contacts []models.Contact
	var messages []models.Message
	err := s.db.Where("user_id = ?", sessionData.UserID).Find(&contacts).Error
	if err == nil {
		owned := s.db.Model(&models.Contact{}).Select("id").Where("user_id = ?", sessionData.UserID)
		err = s.db.Where("contact_id IN (?) AND sender = ?", owned, string(crm.SenderContact)).Find(&messages).Error
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to build overview")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	book := make([]crm.Contact, len(contacts))
	for i := range contacts {
		book[i] = toContact(&contacts[i])
	}
	inbound := make([]crm.Message, len(messages))
	for i := range messages {
		inbound[i] = toMessage(&messages[i])
	}
	c.JSON(http.StatusOK, crm.Summarize(book, inbound))
}
