package web

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/optivoo/crm/internal/onboarding"
	"github.com/optivoo/crm/internal/session"
)

// draftKey holds the in-progress onboarding profile in the cookie session
const draftKey = "onboarding_draft"

func (s *Server) loadDraft(c *gin.Context) onboarding.Profile {
	sess := s.cookieSession(c)
	if raw, ok := sess.Values[draftKey].(string); ok {
		var p onboarding.Profile
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			return p
		}
		s.logger.Debug().Msg("Discarding malformed onboarding draft")
	}

	// Start from whatever the backend already has
	token := currentSession(c).manager.Snapshot().Token
	p, err := s.backend.GetOnboarding(c.Request.Context(), token)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load onboarding profile, using defaults")
		return onboarding.DefaultProfile()
	}
	return p
}

func (s *Server) saveDraft(c *gin.Context, p onboarding.Profile) {
	raw, err := json.Marshal(p)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode onboarding draft")
		return
	}
	sess := s.cookieSession(c)
	sess.Values[draftKey] = string(raw)
	s.saveCookieSession(c, sess)
}

func (s *Server) clearDraft(c *gin.Context) {
	sess := s.cookieSession(c)
	delete(sess.Values, draftKey)
	s.saveCookieSession(c, sess)
}

func stepOptions(step onboarding.Step) []onboarding.Option {
	switch step {
	case onboarding.StepSector:
		return onboarding.Sectors
	case onboarding.StepTone:
		return onboarding.Tones
	case onboarding.StepSupport:
		return onboarding.SupportTypes
	default:
		return nil
	}
}

func stepView(step onboarding.Step, draft onboarding.Profile) gin.H {
	index := 0
	for i, st := range onboarding.Steps {
		if st == step {
			index = i
		}
	}

	view := gin.H{
		"step":    step,
		"index":   index + 1,
		"total":   len(onboarding.Steps),
		"options": stepOptions(step),
		"profile": draft,
		"prev":    "",
		"last":    true,
	}
	if prev, ok := onboarding.Prev(step); ok {
		view["prev"] = onboarding.Path(prev)
	}
	if _, ok := onboarding.Next(step); ok {
		view["last"] = false
	}
	return view
}

func (s *Server) onboardingIndex(c *gin.Context) {
	s.redirect(c, onboarding.Path(onboarding.Steps[0]))
}

func (s *Server) onboardingPage(c *gin.Context) {
	step, ok := onboarding.ParseStep(c.Param("step"))
	if !ok {
		s.render(c, http.StatusNotFound, "not-found", nil)
		return
	}
	s.render(c, http.StatusOK, "onboarding", stepView(step, s.loadDraft(c)))
}

func (s *Server) onboardingSubmit(c *gin.Context) {
	rs := currentSession(c)
	step, ok := onboarding.ParseStep(c.Param("step"))
	if !ok {
		s.render(c, http.StatusNotFound, "not-found", nil)
		return
	}

	draft := s.loadDraft(c)
	switch step {
	case onboarding.StepSector:
		draft.Sector = c.PostForm("sector")
	case onboarding.StepTone:
		draft.Tone = c.PostForm("tone")
	case onboarding.StepHours:
		draft.HoursStart = c.PostForm("hours_start")
		draft.HoursEnd = c.PostForm("hours_end")
	case onboarding.StepSupport:
		draft.SupportType = c.PostForm("support_type")
	}

	if err := onboarding.ValidateStep(draft, step); err != nil {
		rs.addNotice(session.NoticeError, err.Error())
		s.render(c, http.StatusBadRequest, "onboarding", stepView(step, draft))
		return
	}

	if next, ok := onboarding.Next(step); ok {
		s.saveDraft(c, draft)
		s.redirect(c, onboarding.Path(next))
		return
	}

	// Last step: the whole profile must hold, not just this step
	if err := onboarding.Validate(draft); err != nil {
		s.saveDraft(c, draft)
		rs.addNotice(session.NoticeError, msgOnboardingGaps)
		s.render(c, http.StatusBadRequest, "onboarding", stepView(step, draft))
		return
	}

	token := rs.manager.Snapshot().Token
	id, err := s.backend.SaveOnboarding(c.Request.Context(), token, draft)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to save onboarding profile")
		rs.addNotice(session.NoticeError, msgOnboardingFailed)
		s.render(c, http.StatusBadGateway, "onboarding", stepView(step, draft))
		return
	}
	s.clearDraft(c)

	nav := rs.manager.CompleteOnboarding()
	s.logger.Info().Str("user_id", id.ID).Str("sector", draft.Sector).Msg("Onboarding completed")
	s.redirect(c, nav)
}
