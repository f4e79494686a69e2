package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"ops-console-backend/internal/mw"
	"ops-console-backend/internal/resource"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(h.log))
	if len(h.cfg.Server.TrustedProxies) > 0 {
		if err := r.SetTrustedProxies(h.cfg.Server.TrustedProxies); err != nil {
			h.log.Sugar().Warnf("ignoring trusted proxies: %v", err)
		}
	}

	// Login attempts are limited per client IP.
	loginLimiter := mw.NewIPRateLimiter(rate.Limit(h.cfg.Server.RateLimitPerSec), h.cfg.Server.RateLimitBurst)

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/login", h.GetLogin)
	r.POST("/login", mw.RateLimiter(loginLimiter, h.log), h.PostLogin)
	r.GET("/logout", h.Logout)

	private := r.Group("/")
	private.Use(mw.RequireSession(h.auth, mw.GuardConfig{
		CookieName:   h.cfg.Auth.CookieName,
		CookieSecure: h.cfg.Auth.CookieSecure,
		LoginPath:    h.cfg.Auth.LoginPath,
	}, h.log))
	{
		private.GET("/me", h.Me)
		private.GET("/dashboard", h.GetDashboard)

		admin := private.Group("/admin")
		registerResources(admin, h.resources, h.cfg.Console.Locale)

		push := admin.Group("/push")
		push.GET("/subscriptions", h.GetSubscription)
		push.PUT("/subscriptions", h.PutSubscription)
		push.DELETE("/subscriptions", h.DeleteSubscription)
		push.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}

func registerResources(g *gin.RouterGroup, reg *resource.Registry, locale string) {
	registerResource(g, reg.Equipment, locale)
	registerResource(g, reg.EquipmentTypes, locale)
	registerResource(g, reg.MaterialTypes, locale)
	registerResource(g, reg.Operators, locale)
	registerResource(g, reg.Releases, locale)
}
