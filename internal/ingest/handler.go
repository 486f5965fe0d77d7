package ingest

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/viostream/internal/viostream"
	"github.com/aura-webinar/viostream/pkg/response"
)

// DefaultListLimit is how many ingests GET /admin/ingests returns without ?limit.
const DefaultListLimit = 50

// Handler serves the ingest endpoints.
type Handler struct {
	svc            *Service
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewHandler creates an ingest handler. maxUploadBytes <= 0 disables the size check.
func NewHandler(svc *Service, maxUploadBytes int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Create handles POST /admin/ingests. A JSON body submits a URL; a multipart
// form with a "file" part uploads through object storage.
func (h *Handler) Create(c *gin.Context) {
	var (
		ing *Ingest
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		ing, err = h.createFromUpload(c)
	} else {
		var req URLRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			response.BadRequest(c, "invalid request: "+bindErr.Error())
			return
		}
		ing, err = h.svc.FromURL(c.Request.Context(), req)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, ing)
}

func (h *Handler) createFromUpload(c *gin.Context) (*Ingest, error) {
	if !h.svc.UploadsEnabled() {
		return nil, ErrUploadsDisabled
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, errBadUpload{"missing file part"}
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		return nil, errBadUpload{"file exceeds the upload limit"}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errBadUpload{"cannot read uploaded file"}
	}
	defer f.Close()
	return h.svc.FromUpload(c.Request.Context(), fh.Filename, fh.Size, f, c.PostForm("reference_id"))
}

type errBadUpload struct{ msg string }

func (e errBadUpload) Error() string { return e.msg }

// List handles GET /admin/ingests?limit=.
func (h *Handler) List(c *gin.Context) {
	limit := DefaultListLimit
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 && n <= 500 {
		limit = n
	}
	list, err := h.svc.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list ingests failed", zap.Error(err))
		response.Internal(c, "failed to list ingests")
		return
	}
	response.OK(c, list)
}

// Status handles GET /admin/ingests/:id/status, refreshing from the provider.
func (h *Handler) Status(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid ingest id")
		return
	}
	ing, err := h.svc.Refresh(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, ing)
}

func (h *Handler) fail(c *gin.Context, err error) {
	var bad errBadUpload
	switch {
	case errors.As(err, &bad),
		errors.Is(err, ErrInvalidSourceURL),
		errors.Is(err, ErrMissingExtension),
		errors.Is(err, ErrUnsupportedFile):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrUploadsDisabled):
		response.ServiceUnavailable(c, err.Error())
	case errors.Is(err, viostream.ErrNotConfigured):
		response.Forbidden(c, "API not configured")
	case viostream.IsAuthFailure(err):
		response.Forbidden(c, "Invalid API credentials")
	case errors.Is(err, ErrNoIngestID):
		response.BadGateway(c, err.Error())
	default:
		var re *viostream.RequestError
		if errors.As(err, &re) {
			h.logger.Warn("provider ingest call failed", zap.Error(err))
			response.BadGateway(c, "API request failed")
			return
		}
		h.logger.Error("ingest request failed", zap.Error(err))
		response.Internal(c, "ingest request failed")
	}
}
