package roomhandler

import (
	"net/http"

	"roomsync/internal/registry"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Handler { return &Handler{reg: reg} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/health", h.health)
	r.GET("/rooms", h.list)
	r.GET("/rooms/:id", h.info)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Rooms: h.reg.Len()})
}

// list returns a page of room summaries ordered by room id.
func (h *Handler) list(c *gin.Context) {
	var q ListRoomsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if q.Limit == 0 {
		q.Limit = 10
	}

	all := h.reg.Summaries()
	if q.Offset >= len(all) {
		c.JSON(http.StatusOK, []registry.Summary{})
		return
	}
	end := min(q.Offset+q.Limit, len(all))
	c.JSON(http.StatusOK, all[q.Offset:end])
}

func (h *Handler) info(c *gin.Context) {
	sum, ok := h.reg.Summary(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room " + c.Param("id") + " not found"})
		return
	}
	c.JSON(http.StatusOK, sum)
}
