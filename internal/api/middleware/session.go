package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"github.com/Little6thingys/lyric-mind/internal/logger"
)

const (
	// CookieName is the browser cookie that remembers the last editor session.
	CookieName = "lyric-mind"

	cookieKey      = "cookie_session"
	lastSessionKey = "last_session_id"
	cookieMaxAge   = 7 * 24 * 60 * 60
)

// NewCookieStore returns the signed cookie store for secret.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionCookie loads the editor cookie. A tampered or expired cookie
// starts empty.
func SessionCookie(store sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := store.Get(c.Request, CookieName)
		if err != nil {
			logger.Debug("Discarding unreadable session cookie", logger.Fields{"error": err.Error()})
		}
		if sess != nil {
			c.Set(cookieKey, sess)
			if id, ok := sess.Values[lastSessionKey].(string); ok && id != "" {
				c.Set(logger.SessionIDKey, id)
			}
		}
		c.Next()
	}
}

// RememberSession stores id as the last editor session in the cookie.
func RememberSession(c *gin.Context, id string) {
	sess, ok := cookieSession(c)
	if !ok {
		return
	}
	sess.Values[lastSessionKey] = id
	if err := sess.Save(c.Request, c.Writer); err != nil {
		logger.Warn("Failed to save session cookie", logger.Fields{"error": err.Error()})
	}
	c.Set(logger.SessionIDKey, id)
}

// LastSession returns the id remembered by the cookie.
func LastSession(c *gin.Context) (string, bool) {
	sess, ok := cookieSession(c)
	if !ok {
		return "", false
	}
	id, ok := sess.Values[lastSessionKey].(string)
	return id, ok && id != ""
}

func cookieSession(c *gin.Context) (*sessions.Session, bool) {
	v, exists := c.Get(cookieKey)
	if !exists {
		return nil, false
	}
	sess, ok := v.(*sessions.Session)
	return sess, ok && sess != nil
}
