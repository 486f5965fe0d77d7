package references

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-webinar/viostream/internal/embed"
	"github.com/aura-webinar/viostream/pkg/response"
)

// Store persists references. *Repository satisfies it.
type Store interface {
	Get(ctx context.Context, contentID string) (*Stored, error)
	Put(ctx context.Context, contentID string, ref embed.Reference, videoKey string) (*Stored, error)
	Delete(ctx context.Context, contentID string) error
}

// PutRequest is the body of PUT /content/:id/video.
type PutRequest struct {
	Kind  string `json:"kind" binding:"required"`
	Value string `json:"value"`
}

// EmbedView is the JSON form of GET /content/:id/video/embed?format=json.
type EmbedView struct {
	Elements []embed.Element `json:"elements"`
	Settings []string        `json:"settings"`
	HTML     string          `json:"html"`
}

// Handler serves stored references.
type Handler struct {
	store    Store
	details  embed.DetailSource
	defaults embed.FormatterSettings
	logger   *zap.Logger
}

// NewHandler creates a reference handler. details supplies aspect ratios and may be nil.
func NewHandler(store Store, details embed.DetailSource, defaults embed.FormatterSettings, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, details: details, defaults: defaults, logger: logger}
}

// Get handles GET /content/:id/video.
func (h *Handler) Get(c *gin.Context) {
	s, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, s)
}

// Put handles PUT /content/:id/video. Values that resolve to no share key are
// rejected; link references are stored as canonical share URLs. An empty value
// clears the field.
func (h *Handler) Put(c *gin.Context) {
	var req PutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	kind, err := embed.ParseKind(req.Kind)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	contentID := c.Param("id")
	ref := embed.Reference{Kind: kind, Value: strings.TrimSpace(req.Value)}
	if ref.Empty() {
		if err := h.store.Delete(ctx, contentID); err != nil && !errors.Is(err, ErrNotFound) {
			h.fail(c, err)
			return
		}
		response.OK(c, nil)
		return
	}
	ref, err = ref.Normalized()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	key, _ := ref.Key()
	s, err := h.store.Put(ctx, contentID, ref, key)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, s)
}

// Embed handles GET /content/:id/video/embed. Query parameters width, height,
// autoplay, muted, controls and responsive override the default display settings.
// ?format=json returns the elements and settings summary instead of bare HTML.
func (h *Handler) Embed(c *gin.Context) {
	ctx := c.Request.Context()
	s, err := h.store.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	settings := SettingsFromQuery(h.defaults, c.Request.URL.Query())
	f := embed.NewFormatter(settings, h.details, h.logger)
	elements := f.ViewElements(ctx, []embed.Reference{s.Reference})
	html, err := embed.Render(elements)
	if err != nil {
		h.logger.Error("render player failed", zap.String("content_id", s.ContentID), zap.Error(err))
		response.Internal(c, "failed to render player")
		return
	}
	if c.Query("format") == "json" {
		response.OK(c, EmbedView{Elements: elements, Settings: settings.Summary(), HTML: string(html)})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	h.logger.Error("video reference request failed", zap.Error(err))
	response.Internal(c, "video reference request failed")
}

// SettingsFromQuery applies display overrides from q onto base. Unparseable
// values are ignored.
func SettingsFromQuery(base embed.FormatterSettings, q map[string][]string) embed.FormatterSettings {
	get := func(k string) (string, bool) {
		v, ok := q[k]
		if !ok || len(v) == 0 {
			return "", false
		}
		return strings.TrimSpace(v[0]), true
	}
	if v, ok := get("width"); ok && v != "" {
		base.Width = v
	}
	if v, ok := get("height"); ok && v != "" {
		base.Height = v
	}
	for key, dst := range map[string]*bool{
		"autoplay":   &base.Autoplay,
		"muted":      &base.Muted,
		"controls":   &base.Controls,
		"responsive": &base.Responsive,
	} {
		if v, ok := get(key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	return base
}
