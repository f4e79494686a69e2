package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ops-console-backend/config"
	"ops-console-backend/internal/auth"
	"ops-console-backend/internal/dashboard"
	"ops-console-backend/internal/resource"
	"ops-console-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	db        *gorm.DB
	auth      *auth.Service
	resources *resource.Registry
	dashboard *dashboard.Service
	webpush   *webpush.Options
	cfg       *config.Config
	log       *zap.Logger
}

// NewHandler creates a new API handler. webpushOptions may be nil when push
// is disabled.
func NewHandler(db *gorm.DB, authSvc *auth.Service, resources *resource.Registry, dash *dashboard.Service, webpushOptions *webpush.Options, cfg *config.Config, log *zap.Logger) *Handler {
	return &Handler{
		db:        db,
		auth:      authSvc,
		resources: resources,
		dashboard: dash,
		webpush:   webpushOptions,
		cfg:       cfg,
		log:       log,
	}
}

// writeError maps domain errors to status codes.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ve *resource.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Error(), "fields": ve.Fields})
		return
	}
	if store.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, resource.ErrUnsupported) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": err.Error()})
		return
	}
	var se *store.StorageError
	if errors.As(err, &se) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// Healthz reports whether the database answers.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetDashboard returns the dashboard aggregate.
func (h *Handler) GetDashboard(c *gin.Context) {
	data, err := h.dashboard.Get(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}
