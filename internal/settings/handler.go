package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/aura-webinar/viostream/internal/middleware"
	"github.com/aura-webinar/viostream/internal/viostream"
	"github.com/aura-webinar/viostream/pkg/response"
)

// TestTimeout bounds a test-connection call.
const TestTimeout = 15 * time.Second

// Repository loads and saves credentials. *Store satisfies it.
type Repository interface {
	Resolve(ctx context.Context) (Resolved, error)
	Save(ctx context.Context, creds viostream.Credentials, updatedBy string) error
}

// AccountAPI is what connection checks need from a provider client.
type AccountAPI interface {
	IsConfigured(ctx context.Context) bool
	IsAuthError() bool
	AccountInfo(ctx context.Context) (json.RawMessage, error)
}

// ClientFactory builds a client bound to fixed credentials.
type ClientFactory func(creds viostream.Credentials) AccountAPI

// NewClientFactory returns a factory for real clients with the test timeout applied.
func NewClientFactory(baseURL string, httpc *http.Client, logger *zap.Logger) ClientFactory {
	return func(creds viostream.Credentials) AccountAPI {
		return viostream.New(viostream.StaticCredentials(creds),
			viostream.WithBaseURL(baseURL),
			viostream.WithHTTPClient(httpc),
			viostream.WithTimeout(TestTimeout),
			viostream.WithLogger(logger),
		)
	}
}

// ConnectionStatus reports whether the provider accepted a credential pair.
type ConnectionStatus struct {
	Connected    bool   `json:"connected"`
	AccountID    string `json:"account_id,omitempty"`
	AccountTitle string `json:"account_title,omitempty"`
	Message      string `json:"message"`
}

// View is the body of GET /admin/settings.
type View struct {
	AccessKey string            `json:"access_key"`
	APIKey    string            `json:"api_key"`
	Source    string            `json:"source"`
	UpdatedBy string            `json:"updated_by,omitempty"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
	Status    *ConnectionStatus `json:"status,omitempty"`
}

// Handler serves the settings endpoints.
type Handler struct {
	repo      Repository
	active    AccountAPI
	newClient ClientFactory
	logger    *zap.Logger
}

// NewHandler creates a settings handler. active is the shared client reading
// credentials from repo; newClient builds throwaway clients for connection tests.
func NewHandler(repo Repository, active AccountAPI, newClient ClientFactory, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, active: active, newClient: newClient, logger: logger}
}

// Get handles GET /admin/settings. The API key is masked; the connection status
// is only checked when credentials are configured.
func (h *Handler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	r, err := h.repo.Resolve(ctx)
	if err != nil {
		h.logger.Error("load settings failed", zap.Error(err))
		response.Internal(c, "failed to load settings")
		return
	}
	view := View{
		AccessKey: r.AccessKey,
		APIKey:    Mask(r.APIKey),
		Source:    r.Source,
		UpdatedBy: r.UpdatedBy,
	}
	if !r.UpdatedAt.IsZero() {
		view.UpdatedAt = &r.UpdatedAt
	}
	if h.active.IsConfigured(ctx) {
		status := h.currentStatus(ctx)
		view.Status = &status
	}
	response.OK(c, view)
}

func (h *Handler) currentStatus(ctx context.Context) ConnectionStatus {
	raw, err := h.active.AccountInfo(ctx)
	if err != nil {
		msg := "API credentials are set but connection could not be verified. Please check your credentials."
		if h.active.IsAuthError() {
			msg = "The saved API credentials were rejected by Viostream."
		}
		return ConnectionStatus{Message: msg}
	}
	title := accountTitle(raw)
	return ConnectionStatus{
		Connected:    true,
		AccountID:    gjson.GetBytes(raw, "id").String(),
		AccountTitle: title,
		Message:      fmt.Sprintf("Connected to Viostream account: %s", title),
	}
}

// Save handles PUT /admin/settings.
func (h *Handler) Save(c *gin.Context) {
	var form Form
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := form.Validate(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	creds := form.Credentials()
	if err := h.repo.Save(c.Request.Context(), creds, c.GetString(middleware.ContextSubject)); err != nil {
		h.logger.Error("save settings failed", zap.Error(err))
		response.Internal(c, "failed to save settings")
		return
	}
	response.OK(c, View{AccessKey: creds.AccessKey, APIKey: Mask(creds.APIKey), Source: SourceDatabase})
}

// TestConnection handles POST /admin/settings/test. It uses the submitted keys,
// not the saved ones, and never stores them.
func (h *Handler) TestConnection(c *gin.Context) {
	var form Form
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	creds := form.Credentials()
	if !creds.Configured() {
		response.BadRequest(c, ErrMissingKeys.Error())
		return
	}
	raw, err := h.newClient(creds).AccountInfo(c.Request.Context())
	if err != nil {
		response.OK(c, ConnectionStatus{Message: failureMessage(err)})
		return
	}
	id := gjson.GetBytes(raw, "id").String()
	if id == "" {
		id = "Unknown"
	}
	title := accountTitle(raw)
	response.OK(c, ConnectionStatus{
		Connected:    true,
		AccountID:    gjson.GetBytes(raw, "id").String(),
		AccountTitle: title,
		Message:      fmt.Sprintf("Connection successful! Account: %s (ID: %s)", title, id),
	})
}

func failureMessage(err error) string {
	var re *viostream.RequestError
	if errors.As(err, &re) {
		if re.Status != 0 {
			return fmt.Sprintf("Connection failed. The API returned status code %d.", re.Status)
		}
		return "Connection failed: " + re.Message
	}
	return "Connection failed: " + err.Error()
}

func accountTitle(raw []byte) string {
	if t := gjson.GetBytes(raw, "title").String(); t != "" {
		return t
	}
	return "Unknown"
}
