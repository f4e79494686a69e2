package mw

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ops-console-backend/internal/model"
)

const sessionKey = "session"

// SessionLookup resolves a session token.
type SessionLookup interface {
	Lookup(ctx context.Context, token string) (*model.Session, error)
}

// GuardConfig names the cookie and login path used by RequireSession.
type GuardConfig struct {
	CookieName   string
	CookieSecure bool
	LoginPath    string
}

// Token extracts the session token from the Authorization header or the
// session cookie.
func Token(c *gin.Context, cookieName string) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	token, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return token
}

// RequireSession lets authenticated requests through. Anonymous page loads
// are redirected to the login path with a redirectTo parameter; any other
// anonymous request gets 401.
func RequireSession(sessions SessionLookup, cfg GuardConfig, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := Token(c, cfg.CookieName)
		session, err := sessions.Lookup(c.Request.Context(), token)
		if err == nil {
			c.Set(sessionKey, session)
			c.Next()
			return
		}

		if token != "" {
			log.Debug("session rejected", zap.Error(err))
			c.SetCookie(cfg.CookieName, "", -1, "/", "", cfg.CookieSecure, true)
		}
		if c.Request.Method == http.MethodGet {
			target := cfg.LoginPath + "?" + url.Values{"redirectTo": {c.Request.URL.RequestURI()}}.Encode()
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
}

// SessionFrom returns the session stored by RequireSession.
func SessionFrom(c *gin.Context) *model.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*model.Session)
	return s
}
