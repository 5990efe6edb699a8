package web

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/optivoo/crm/internal/guard"
	"github.com/optivoo/crm/internal/session"
	"github.com/optivoo/crm/internal/slot"
)

const requestSessionKey = "request_session"

// requestSession is the per-request view of the visitor's session
type requestSession struct {
	manager *session.Manager
	// notices published during this request, in order
	notices []session.Notice
}

func (rs *requestSession) addNotice(level session.NoticeLevel, msg string) {
	rs.notices = append(rs.notices, session.Notice{Level: level, Message: msg})
}

func currentSession(c *gin.Context) *requestSession {
	return c.MustGet(requestSessionKey).(*requestSession)
}

// sessionMiddleware restores the visitor's session from the cookie slot
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rs := &requestSession{}
		cookie := slot.NewCookie(s.store, c.Request, c.Writer)
		rs.manager = session.NewManager(s.backend, cookie,
			session.WithLogger(s.logger),
			session.WithPaths(s.paths),
		)

		unsubscribe := rs.manager.Subscribe(func(ev session.Event) {
			if ev.Notice != nil {
				rs.notices = append(rs.notices, *ev.Notice)
			}
		})
		defer unsubscribe()

		rs.manager.Initialize(c.Request.Context())
		c.Set(requestSessionKey, rs)
		c.Next()
	}
}

// guardMiddleware applies the route table before any page handler runs
func (s *Server) guardMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rs := currentSession(c)
		intent := s.table.Intent(c.Request.URL.Path)
		d := guard.Decide(intent, rs.manager.Snapshot(), rs.manager.Paths())

		switch d.Kind {
		case guard.Pass:
			c.Next()
			return
		case guard.Loading:
			s.render(c, http.StatusServiceUnavailable, "loading", nil)
			c.Abort()
			return
		}

		target := d.Redirect
		if d.ReturnTo != "" {
			target += "?" + url.Values{"from": {d.ReturnTo}}.Encode()
		}
		s.logger.Debug().
			Str("path", intent.Path).
			Str("access", intent.Access.String()).
			Str("decision", d.Kind.String()).
			Str("redirect", target).
			Msg("Navigation redirected")

		s.redirect(c, target)
		c.Abort()
	}
}
