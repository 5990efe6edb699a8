package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/optivoo/crm/internal/models"
	"github.com/optivoo/crm/internal/onboarding"
)

// @Summary Get onboarding profile
// @Description Returns the stored business profile, or the defaults when none was saved yet
// @Tags onboarding
// @Produce json
// @Security BearerAuth
// @Success 200 {object} onboarding.Profile
// @Failure 401 {object} map[string]interface{}
// @Router /api/onboarding [get]
func (s *Server) getOnboarding(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var bp models.BusinessProfile
	err := s.db.Where("user_id = ?", sessionData.UserID).First(&bp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, onboarding.DefaultProfile())
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to load business profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, onboarding.Profile{
		Sector:      bp.Sector,
		Tone:        bp.Tone,
		HoursStart:  bp.HoursStart,
		HoursEnd:    bp.HoursEnd,
		SupportType: bp.SupportType,
	})
}

// @Summary Save onboarding profile
// @Description Stores the business profile and marks onboarding as completed
// @Tags onboarding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body onboarding.Profile true "Business profile"
// @Success 200 {object} UserDetail
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/onboarding [put]
func (s *Server) saveOnboarding(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req onboarding.Profile
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := onboarding.Validate(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := s.now()
	var user models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		bp := models.BusinessProfile{
			UserID:      sessionData.UserID,
			Sector:      req.Sector,
			Tone:        req.Tone,
			HoursStart:  req.HoursStart,
			HoursEnd:    req.HoursEnd,
			SupportType: req.SupportType,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"sector", "tone", "hours_start", "hours_end", "support_type", "updated_at"}),
		}).Create(&bp).Error; err != nil {
			return err
		}

		if err := models.FindByID(tx, sessionData.UserID, &user); err != nil {
			return err
		}
		if user.OnboardingCompleted {
			return nil
		}
		user.OnboardingCompleted = true
		user.OnboardedAt = &now
		return tx.Model(&user).Updates(map[string]interface{}{
			"onboarding_completed": true,
			"onboarded_at":         now,
		}).Error
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to save business profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save onboarding"})
		return
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("sector", req.Sector).
		Str("support_type", req.SupportType).
		Msg("Onboarding completed")

	c.JSON(http.StatusOK, newUserDetail(&user))
}
