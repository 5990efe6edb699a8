package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"github.com/optivoo/crm/internal/guard"
	"github.com/optivoo/crm/internal/session"
	"github.com/optivoo/crm/internal/slot"
)

var noticeLevels = []session.NoticeLevel{session.NoticeSuccess, session.NoticeInfo, session.NoticeError}

func flashKey(level session.NoticeLevel) string {
	return "notice:" + string(level)
}

// cookieSession returns the gorilla session shared with the cookie slot.
// A cookie that fails to decode yields a fresh session.
func (s *Server) cookieSession(c *gin.Context) *sessions.Session {
	sess, err := s.store.Get(c.Request, slot.CookieSessionName)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Discarding undecodable session cookie")
	}
	return sess
}

func (s *Server) saveCookieSession(c *gin.Context, sess *sessions.Session) {
	if err := sess.Save(c.Request, c.Writer); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save session cookie")
	}
}

// render writes the JSON view model for a page. Notices from earlier
// requests (flashes) come first, then the ones raised while serving this one.
func (s *Server) render(c *gin.Context, status int, view string, data gin.H) {
	rs := currentSession(c)

	notices := []session.Notice{}
	sess := s.cookieSession(c)
	flashed := false
	for _, level := range noticeLevels {
		for _, f := range sess.Flashes(flashKey(level)) {
			if msg, ok := f.(string); ok {
				notices = append(notices, session.Notice{Level: level, Message: msg})
			}
			flashed = true
		}
	}
	if flashed {
		s.saveCookieSession(c, sess)
	}
	notices = append(notices, rs.notices...)
	rs.notices = nil

	body := gin.H{"view": view, "notices": notices}
	if st := rs.manager.Snapshot(); st.IsAuthenticated() {
		body["user"] = st.Identity
	}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}

// redirect carries pending notices over as flashes and redirects
func (s *Server) redirect(c *gin.Context, target string) {
	rs := currentSession(c)
	if len(rs.notices) > 0 {
		sess := s.cookieSession(c)
		for _, n := range rs.notices {
			sess.AddFlash(n.Message, flashKey(n.Level))
		}
		rs.notices = nil
		s.saveCookieSession(c, sess)
	}

	status := http.StatusFound
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		status = http.StatusSeeOther
	}
	c.Redirect(status, target)
}

// returnTarget picks where a fresh sign-in lands. The advisory return path
// only replaces the home page, never the onboarding entry.
func (s *Server) returnTarget(nav, from string) string {
	if nav != s.paths.Home || !isLocalPath(from) {
		return nav
	}
	u, _ := url.Parse(from)
	if s.table.Lookup(u.Path) == guard.PublicOnly {
		return nav
	}
	return from
}

func isLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}
