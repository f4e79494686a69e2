package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"ops-console-backend/internal/export"
	"ops-console-backend/internal/resource"
	"ops-console-backend/internal/view"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ListResponse is the body of a resource list.
type ListResponse[T any] struct {
	Rows  []T        `json:"rows"`
	Total int        `json:"total"`
	Query view.Query `json:"query"`
}

// resourceHandler serves CRUD and toggle for one kind.
type resourceHandler[T any] struct {
	svc    *resource.Service[T]
	locale string
}

func registerResource[T any](g *gin.RouterGroup, svc *resource.Service[T], locale string) {
	h := &resourceHandler[T]{svc: svc, locale: locale}
	kind := svc.Definition().Kind

	rg := g.Group("/" + kind)
	rg.GET("", h.list)
	rg.GET("/export.xlsx", h.export)
	rg.POST("", h.create)
	rg.PATCH("/:id", h.update)
	rg.POST("/:id/toggle", h.toggle)
	rg.DELETE("/:id", h.remove)
}

// derive loads the cached list and applies the table query from the URL.
func (h *resourceHandler[T]) derive(c *gin.Context) ([]T, view.Query, error) {
	rows, err := h.svc.List(c.Request.Context())
	if err != nil {
		return nil, view.Query{}, err
	}
	q := view.ParseQuery(c.Request.URL.Query())
	return h.svc.Definition().View.Derive(rows, q, h.locale), q, nil
}

func (h *resourceHandler[T]) list(c *gin.Context) {
	rows, q, err := h.derive(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse[T]{Rows: rows, Total: len(rows), Query: q})
}

func (h *resourceHandler[T]) export(c *gin.Context) {
	rows, _, err := h.derive(c)
	if err != nil {
		writeError(c, err)
		return
	}
	def := h.svc.Definition()
	data, err := export.XLSX(def.Label, def.View, rows)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, def.Kind))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *resourceHandler[T]) create(c *gin.Context) {
	in := h.svc.Definition().NewInput()
	if err := c.ShouldBindJSON(in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	row, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (h *resourceHandler[T]) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p := h.svc.Definition().NewPatch()
	if err := c.ShouldBindJSON(p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.svc.Update(c.Request.Context(), id, p); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *resourceHandler[T]) toggle(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	status, err := h.svc.Toggle(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": status})
}

func (h *resourceHandler[T]) remove(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
