package slot

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	// CookieSessionName is the browser session holding the slot
	CookieSessionName = "optivoo-session"

	cookieTokenKey = "token"
)

// Cookie keeps the token in a gorilla session bound to one request/response
// pair. Save and Clear write the Set-Cookie header immediately, so they must
// run before the response body is written.
type Cookie struct {
	store sessions.Store
	r     *http.Request
	w     http.ResponseWriter
}

// NewCookie binds a cookie slot to the request being served
func NewCookie(store sessions.Store, r *http.Request, w http.ResponseWriter) *Cookie {
	return &Cookie{store: store, r: r, w: w}
}

func (c *Cookie) session() (*sessions.Session, error) {
	// Get returns a fresh session alongside a decode error, e.g. after the
	// secret rotated; the caller treats that as an unreadable slot.
	sess, err := c.store.Get(c.r, CookieSessionName)
	if err != nil {
		return sess, fmt.Errorf("failed to decode session cookie: %w", err)
	}
	return sess, nil
}

func (c *Cookie) Load() (string, error) {
	sess, err := c.session()
	if err != nil {
		return "", err
	}
	token, _ := sess.Values[cookieTokenKey].(string)
	if token == "" {
		return "", ErrEmpty
	}
	return token, nil
}

func (c *Cookie) Save(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	sess, _ := c.session()
	sess.Values[cookieTokenKey] = token
	if err := sess.Save(c.r, c.w); err != nil {
		return fmt.Errorf("failed to save session cookie: %w", err)
	}
	return nil
}

func (c *Cookie) Clear() error {
	sess, _ := c.session()
	delete(sess.Values, cookieTokenKey)
	if err := sess.Save(c.r, c.w); err != nil {
		return fmt.Errorf("failed to save session cookie: %w", err)
	}
	return nil
}

// NewCookieStore returns the cookie store used by the web front end
func NewCookieStore(secret []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
