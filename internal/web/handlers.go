package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/optivoo/crm/internal/session"
)

const (
	msgEmailRequired    = "Enter your email address."
	msgForgotFailed     = "Could not send the recovery link. Try again."
	msgOnboardingFailed = "Could not save your answers. Try again."
	msgOnboardingGaps   = "Complete every step before finishing."
	msgResetMismatch    = "Passwords do not match"
	msgResetTooShort    = "Password must be at least 6 characters"
	msgResetInvalid     = "This reset link is invalid or has expired."
	msgResetDone        = "Password updated. Sign in with your new password."

	minPasswordLength = 6
)

// landingPage sends every visitor to sign-in; the guard forwards a
// signed-in visitor from there
func (s *Server) landingPage(c *gin.Context) {
	s.redirect(c, s.paths.SignIn)
}

func (s *Server) loginPage(c *gin.Context) {
	s.render(c, http.StatusOK, "login", gin.H{"from": c.Query("from")})
}

func (s *Server) loginSubmit(c *gin.Context) {
	rs := currentSession(c)
	email := c.PostForm("email")
	from := c.PostForm("from")
	if from == "" {
		from = c.Query("from")
	}

	nav, err := rs.manager.Login(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, session.ErrLoginFailed) {
			status = http.StatusInternalServerError
		}
		s.render(c, status, "login", gin.H{"email": email, "from": from})
		return
	}

	s.redirect(c, s.returnTarget(nav, from))
}

func (s *Server) signupPage(c *gin.Context) {
	s.render(c, http.StatusOK, "signup", nil)
}

func (s *Server) signupSubmit(c *gin.Context) {
	rs := currentSession(c)
	reg := session.Registration{
		Name:     strings.TrimSpace(c.PostForm("name")),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
		Confirm:  c.PostForm("confirm_password"),
	}

	nav, err := rs.manager.Register(c.Request.Context(), reg)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrPasswordMismatch) ||
			errors.Is(err, session.ErrPasswordTooShort) ||
			errors.Is(err, session.ErrRegisterFailed) {
			status = http.StatusBadRequest
		}
		s.render(c, status, "signup", gin.H{"name": reg.Name, "email": reg.Email})
		return
	}

	s.redirect(c, nav)
}

func (s *Server) forgotPasswordPage(c *gin.Context) {
	s.render(c, http.StatusOK, "forgot-password", gin.H{"sent": false})
}

func (s *Server) forgotPasswordSubmit(c *gin.Context) {
	rs := currentSession(c)
	email := strings.TrimSpace(c.PostForm("email"))
	if email == "" {
		rs.addNotice(session.NoticeError, msgEmailRequired)
		s.render(c, http.StatusBadRequest, "forgot-password", gin.H{"sent": false})
		return
	}

	msg, err := s.backend.ForgotPassword(c.Request.Context(), email)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Password recovery request failed")
		rs.addNotice(session.NoticeError, msgForgotFailed)
		s.render(c, http.StatusBadGateway, "forgot-password", gin.H{"sent": false, "email": email})
		return
	}

	rs.addNotice(session.NoticeSuccess, msg)
	s.render(c, http.StatusOK, "forgot-password", gin.H{"sent": true, "email": email})
}

func (s *Server) resetPasswordPage(c *gin.Context) {
	s.render(c, http.StatusOK, "reset-password", gin.H{"token": c.Query("token")})
}

func (s *Server) resetPasswordSubmit(c *gin.Context) {
	rs := currentSession(c)
	token := c.PostForm("token")
	password := c.PostForm("password")

	switch {
	case token == "":
		rs.addNotice(session.NoticeError, msgResetInvalid)
	case password != c.PostForm("confirm_password"):
		rs.addNotice(session.NoticeError, msgResetMismatch)
	case len(password) < minPasswordLength:
		rs.addNotice(session.NoticeError, msgResetTooShort)
	default:
		if err := s.backend.ResetPassword(c.Request.Context(), token, password); err != nil {
			s.logger.Info().Err(err).Msg("Password reset rejected")
			rs.addNotice(session.NoticeError, msgResetInvalid)
			break
		}
		rs.addNotice(session.NoticeSuccess, msgResetDone)
		s.redirect(c, s.paths.SignIn)
		return
	}

	s.render(c, http.StatusBadRequest, "reset-password", gin.H{"token": token})
}

func (s *Server) logoutSubmit(c *gin.Context) {
	nav := currentSession(c).manager.Logout()
	s.redirect(c, nav)
}
