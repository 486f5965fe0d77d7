// Package rendering exposes the rich-text video filter over HTTP.
package rendering

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-webinar/viostream/internal/embed"
	"github.com/aura-webinar/viostream/pkg/response"
)

// FilterRequest is the body of POST /render/filter.
type FilterRequest struct {
	Text string `json:"text"`
}

// FilterResponse carries the filtered fragment.
type FilterResponse struct {
	Text     string `json:"text"`
	Embedded int    `json:"embedded"`
}

// Handler serves the filter endpoints.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a rendering handler.
func NewHandler(logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger}
}

// Register mounts the routes on g.
func (h *Handler) Register(g gin.IRoutes) {
	g.POST("/filter", h.Filter)
	g.GET("/filter/tips", h.Tips)
}

// Filter handles POST /render/filter.
func (h *Handler) Filter(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := embed.FilterText(req.Text)
	if err != nil {
		h.logger.Warn("filter text failed", zap.Int("length", len(req.Text)), zap.Error(err))
		response.BadRequest(c, "could not parse text")
		return
	}
	if res.Embedded > 0 {
		h.logger.Debug("embedded videos", zap.Int("count", res.Embedded))
	}
	response.OK(c, FilterResponse{Text: res.Text, Embedded: res.Embedded})
}

// Tips handles GET /render/filter/tips?long=true.
func (h *Handler) Tips(c *gin.Context) {
	long := c.Query("long") == "true" || c.Query("long") == "1"
	c.String(http.StatusOK, embed.FilterTips(long))
}
