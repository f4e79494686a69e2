package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ops-console-backend/internal/auth"
	"ops-console-backend/internal/mw"
)

type loginRequest struct {
	Email      string `json:"email" form:"email" binding:"required"`
	Password   string `json:"password" form:"password" binding:"required"`
	RedirectTo string `json:"redirectTo" form:"redirectTo"`
}

type loginResponse struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	RedirectTo string    `json:"redirect_to"`
}

// safeRedirect keeps only local absolute paths; anything else goes to the
// default page.
func safeRedirect(target, fallback string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}

// GetLogin reports where a successful sign-in will land.
func (h *Handler) GetLogin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"redirect_to": safeRedirect(c.Query("redirectTo"), h.cfg.Auth.DefaultRedirect),
	})
}

// PostLogin signs a user in and sets the session cookie.
func (h *Handler) PostLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	session, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Error("sign in failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign in failed"})
		return
	}

	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Auth.CookieName, session.Token, maxAge, "/", "", h.cfg.Auth.CookieSecure, true)

	c.JSON(http.StatusOK, loginResponse{
		Token:      session.Token,
		ExpiresAt:  session.ExpiresAt,
		RedirectTo: safeRedirect(req.RedirectTo, h.cfg.Auth.DefaultRedirect),
	})
}

// Logout ends the session and returns to the login page.
func (h *Handler) Logout(c *gin.Context) {
	token := mw.Token(c, h.cfg.Auth.CookieName)
	if err := h.auth.SignOut(c.Request.Context(), token); err != nil {
		h.log.Warn("sign out failed", zap.Error(err))
	}
	c.SetCookie(h.cfg.Auth.CookieName, "", -1, "/", "", h.cfg.Auth.CookieSecure, true)
	c.Redirect(http.StatusFound, h.cfg.Auth.LoginPath)
}

// Me describes the signed-in user.
func (h *Handler) Me(c *gin.Context) {
	session := mw.SessionFrom(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         session.User.ID,
		"email":      session.User.Email,
		"role":       session.User.Role,
		"expires_at": session.ExpiresAt,
	})
}
