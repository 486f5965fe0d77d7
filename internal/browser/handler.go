// Package browser serves the editor-facing media browser: paged search over the
// account's media, whitelisted detail, and a preview of a stored reference.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/aura-webinar/viostream/internal/embed"
	"github.com/aura-webinar/viostream/internal/media"
	"github.com/aura-webinar/viostream/internal/viostream"
	"github.com/aura-webinar/viostream/pkg/response"
)

// Error messages returned in the {error} object.
const (
	MsgNotConfigured      = "API not configured"
	MsgInvalidCredentials = "Invalid API credentials"
	MsgNotFound           = "Media not found"
	MsgRequestFailed      = "API request failed"
)

// MediaAPI is the slice of the provider client the browser uses.
type MediaAPI interface {
	IsConfigured(ctx context.Context) bool
	ListMedia(ctx context.Context, p viostream.ListParams) (json.RawMessage, error)
	MediaDetail(ctx context.Context, mediaID, expand string) (json.RawMessage, error)
}

// SearchResult is the body of GET /browser/search.
type SearchResult struct {
	Items      []json.RawMessage `json:"items"`
	TotalItems int64             `json:"totalItems"`
	TotalPages int64             `json:"totalPages"`
	PageNumber int64             `json:"pageNumber"`
	PageSize   int64             `json:"pageSize"`
}

// Page is the initial browser view.
type Page struct {
	SearchResult
	SearchURL     string `json:"searchUrl"`
	DetailURLBase string `json:"detailUrlBase"`
}

// Preview describes a stored value for the widget.
type Preview struct {
	Value     string `json:"value"`
	Key       string `json:"key,omitempty"`
	Title     string `json:"title,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Empty     bool   `json:"empty"`
}

// MediaIDPlaceholder is substituted by the UI in DetailURLBase.
const MediaIDPlaceholder = "__MEDIA_ID__"

// Handler serves the browser endpoints.
type Handler struct {
	api           MediaAPI
	searchURL     string
	detailURLBase string
	logger        *zap.Logger
}

// NewHandler creates a browser handler. basePath is where the routes are mounted, e.g. "/browser".
func NewHandler(api MediaAPI, basePath string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		api:           api,
		searchURL:     basePath + "/search",
		detailURLBase: basePath + "/media/" + MediaIDPlaceholder,
		logger:        logger,
	}
}

// Register mounts the routes on g.
func (h *Handler) Register(g gin.IRoutes) {
	g.GET("", h.Browse)
	g.GET("/search", h.Search)
	g.GET("/media/:id", h.Detail)
	g.GET("/preview", h.Preview)
}

// Browse handles GET /browser. Returns the first page plus the URLs the UI calls next.
// A failed listing still renders an empty page.
func (h *Handler) Browse(c *gin.Context) {
	ctx := c.Request.Context()
	if !h.api.IsConfigured(ctx) {
		response.Forbidden(c, "Viostream API credentials are not configured")
		return
	}
	page := Page{
		SearchResult:  emptyResult(),
		SearchURL:     h.searchURL,
		DetailURLBase: h.detailURLBase,
	}
	raw, err := h.api.ListMedia(ctx, DefaultPagination().ListParams())
	if err != nil {
		h.logger.Warn("initial media listing failed", zap.Error(err))
	} else {
		page.SearchResult = searchResult(raw)
	}
	response.OK(c, page)
}

// Search handles GET /browser/search?search=&page=&page_size=&sort=&order=.
func (h *Handler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	if !h.api.IsConfigured(ctx) {
		response.ErrorObject(c, http.StatusForbidden, MsgNotConfigured)
		return
	}
	p := ParsePagination(c.Request.URL.Query())
	raw, err := h.api.ListMedia(ctx, p.ListParams())
	if err != nil {
		h.fail(c, err, false)
		return
	}
	c.JSON(http.StatusOK, searchResult(raw))
}

// Detail handles GET /browser/media/:id. Only whitelisted fields and the resolved
// frame size are returned.
func (h *Handler) Detail(c *gin.Context) {
	ctx := c.Request.Context()
	if !h.api.IsConfigured(ctx) {
		response.ErrorObject(c, http.StatusForbidden, MsgNotConfigured)
		return
	}
	raw, err := h.api.MediaDetail(ctx, c.Param("id"), "")
	if err != nil {
		h.fail(c, err, true)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", media.ShapeDetail(raw, media.ResolveDimensions(raw)))
}

// Preview handles GET /browser/preview?value=. The title and thumbnail are filled
// when the value resolves and the provider knows the video; otherwise the raw value is shown.
func (h *Handler) Preview(c *gin.Context) {
	value := c.Query("value")
	p := Preview{Value: value, Empty: embed.TextReference(value).Empty()}
	if p.Empty {
		c.JSON(http.StatusOK, p)
		return
	}
	key, ok := embed.ExtractKey(value)
	if !ok {
		c.JSON(http.StatusOK, p)
		return
	}
	p.Key = key
	ctx := c.Request.Context()
	if h.api.IsConfigured(ctx) {
		raw, err := h.api.MediaDetail(ctx, key, "")
		if err != nil {
			h.logger.Debug("preview detail unavailable", zap.String("key", key), zap.Error(err))
		} else {
			p.Title = gjson.GetBytes(raw, "title").String()
			p.Thumbnail = gjson.GetBytes(raw, "thumbnail").String()
		}
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) fail(c *gin.Context, err error, detail bool) {
	switch {
	case errors.Is(err, viostream.ErrNotConfigured):
		response.ErrorObject(c, http.StatusForbidden, MsgNotConfigured)
	case viostream.IsAuthFailure(err):
		response.ErrorObject(c, http.StatusForbidden, MsgInvalidCredentials)
	case detail && viostream.IsNotFound(err):
		response.ErrorObject(c, http.StatusNotFound, MsgNotFound)
	default:
		h.logger.Error("media browser request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.ErrorObject(c, http.StatusInternalServerError, MsgRequestFailed)
	}
}

func emptyResult() SearchResult {
	return SearchResult{
		Items:      []json.RawMessage{},
		PageNumber: 1,
		PageSize:   DefaultPageSize,
	}
}

// searchResult reads listResult, defaulting every missing counter.
func searchResult(raw []byte) SearchResult {
	res := emptyResult()
	list := gjson.GetBytes(raw, "listResult")
	if !list.IsObject() {
		return res
	}
	res.Items = media.ShapeSummaries(list.Get("items"))
	if v := list.Get("totalItems"); v.Exists() {
		res.TotalItems = v.Int()
	}
	if v := list.Get("totalPages"); v.Exists() {
		res.TotalPages = v.Int()
	}
	if v := list.Get("pageNumber"); v.Exists() {
		res.PageNumber = v.Int()
	}
	if v := list.Get("pageSize"); v.Exists() {
		res.PageSize = v.Int()
	}
	return res
}
