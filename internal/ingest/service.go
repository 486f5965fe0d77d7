package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/aura-webinar/viostream/internal/viostream"
	"github.com/aura-webinar/viostream/pkg/queue"
	"github.com/aura-webinar/viostream/pkg/storage"
)

// Submission errors.
var (
	ErrInvalidSourceURL = errors.New("source_url must be an absolute http or https URL")
	ErrMissingExtension = errors.New("cannot determine the file extension")
	ErrUnsupportedFile  = errors.New("unsupported video file type")
	ErrUploadsDisabled  = errors.New("file uploads are not configured")
	ErrNoIngestID       = errors.New("provider response carried no ingestId")
)

// API is the provider surface used for ingests. *viostream.Client satisfies it.
type API interface {
	CreateMediaIngest(ctx context.Context, req viostream.IngestRequest) (json.RawMessage, error)
	IngestStatus(ctx context.Context, ingestID string) (json.RawMessage, error)
}

// Store persists ingests. *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, ing *Ingest) error
	Get(ctx context.Context, id uuid.UUID) (*Ingest, error)
	List(ctx context.Context, limit int) ([]Ingest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status, errMsg string, polls int) error
}

// Stager keeps uploaded files where the provider can fetch them. *storage.S3 satisfies it.
type Stager interface {
	Stage(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error
	SourceURL(ctx context.Context, key string) (string, error)
	DeleteStaged(ctx context.Context, key string) error
}

// Scheduler queues background status polls. *queue.Queue satisfies it.
type Scheduler interface {
	EnqueueIngestPoll(ctx context.Context, payload queue.IngestPollPayload, delay time.Duration) error
}

// Notifier is told about every stored change to an ingest.
type Notifier interface {
	IngestChanged(ctx context.Context, ing *Ingest)
}

// URLRequest asks the provider to pull a video from a public URL.
type URLRequest struct {
	SourceURL   string `json:"source_url" binding:"required"`
	Filename    string `json:"filename"`
	Extension   string `json:"extension"`
	ReferenceID string `json:"reference_id"`
}

// Service submits ingests and refreshes their status.
type Service struct {
	api       API
	store     Store
	stager    Stager
	scheduler Scheduler
	pollDelay time.Duration
	notifier  Notifier
	logger    *zap.Logger
}

// NewService creates an ingest service. stager and scheduler may be nil: without a
// stager uploads are rejected, without a scheduler status is only refreshed on request.
func NewService(api API, store Store, stager Stager, scheduler Scheduler, pollDelay time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, store: store, stager: stager, scheduler: scheduler, pollDelay: pollDelay, logger: logger}
}

// SetNotifier sets the notifier for ingest changes. Nil disables notifications.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

func (s *Service) notify(ctx context.Context, ing *Ingest) {
	if s.notifier != nil {
		s.notifier.IngestChanged(ctx, ing)
	}
}

// UploadsEnabled reports whether FromUpload can be used.
func (s *Service) UploadsEnabled() bool { return s.stager != nil }

// FromURL submits a URL ingest. Filename and extension default to the URL's last path segment.
func (s *Service) FromURL(ctx context.Context, req URLRequest) (*Ingest, error) {
	u, err := url.Parse(strings.TrimSpace(req.SourceURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidSourceURL
	}
	name, ext := storage.SplitFilename(u.Path)
	if req.Filename != "" {
		name = strings.TrimSpace(req.Filename)
	}
	if req.Extension != "" {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(req.Extension), "."))
	}
	if ext == "" {
		return nil, ErrMissingExtension
	}
	if name == "" {
		name = "video"
	}
	ing := &Ingest{
		ID:          uuid.New(),
		Filename:    name,
		Extension:   "." + ext,
		SourceURL:   u.String(),
		ReferenceID: strings.TrimSpace(req.ReferenceID),
	}
	return s.submit(ctx, ing)
}

// FromUpload stages body in object storage and submits a pre-signed URL to it.
// The staged object is removed again if the provider rejects the ingest.
func (s *Service) FromUpload(ctx context.Context, filename string, size int64, body io.Reader, referenceID string) (*Ingest, error) {
	if s.stager == nil {
		return nil, ErrUploadsDisabled
	}
	if !storage.ValidateVideoFile(filename) {
		return nil, ErrUnsupportedFile
	}
	key := storage.StagingKey(filename)
	if err := s.stager.Stage(ctx, key, storage.ContentTypeForFilename(filename), body, size); err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	sourceURL, err := s.stager.SourceURL(ctx, key)
	if err != nil {
		s.discard(ctx, key)
		return nil, fmt.Errorf("presign staged upload: %w", err)
	}
	name, ext := storage.SplitFilename(filename)
	ing := &Ingest{
		ID:          uuid.New(),
		Filename:    name,
		Extension:   "." + ext,
		SourceURL:   sourceURL,
		S3Key:       key,
		ReferenceID: strings.TrimSpace(referenceID),
	}
	out, err := s.submit(ctx, ing)
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	return out, nil
}

func (s *Service) submit(ctx context.Context, ing *Ingest) (*Ingest, error) {
	raw, err := s.api.CreateMediaIngest(ctx, viostream.IngestRequest{
		SourceURL:   ing.SourceURL,
		Filename:    ing.Filename,
		Extension:   ing.Extension,
		ReferenceID: ing.ReferenceID,
	})
	if err != nil {
		return nil, fmt.Errorf("create media ingest: %w", err)
	}
	ing.IngestID = gjson.GetBytes(raw, "ingestId").String()
	if ing.IngestID == "" {
		return nil, ErrNoIngestID
	}
	ing.Status = StatusSubmitted
	if err := s.store.Create(ctx, ing); err != nil {
		return nil, err
	}
	s.logger.Info("media ingest submitted",
		zap.String("id", ing.ID.String()),
		zap.String("ingest_id", ing.IngestID),
		zap.String("filename", ing.Filename+ing.Extension),
	)
	s.notify(ctx, ing)
	if s.scheduler != nil {
		payload := queue.IngestPollPayload{IngestRowID: ing.ID, IngestID: ing.IngestID}
		if err := s.scheduler.EnqueueIngestPoll(ctx, payload, s.pollDelay); err != nil {
			// The row exists; status can still be refreshed on request.
			s.logger.Warn("enqueue ingest poll failed", zap.String("id", ing.ID.String()), zap.Error(err))
		}
	}
	return ing, nil
}

// Get returns a tracked ingest.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Ingest, error) {
	return s.store.Get(ctx, id)
}

// List returns recent ingests.
func (s *Service) List(ctx context.Context, limit int) ([]Ingest, error) {
	return s.store.List(ctx, limit)
}

// Refresh fetches the provider status of ingest id and stores it. Terminal
// ingests are returned as stored without calling the provider. When the refresh
// makes the ingest terminal its staged upload is deleted.
func (s *Service) Refresh(ctx context.Context, id uuid.UUID) (*Ingest, error) {
	ing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ing.Terminal() {
		return ing, nil
	}
	raw, err := s.api.IngestStatus(ctx, ing.IngestID)
	if err != nil {
		return nil, fmt.Errorf("ingest status %s: %w", ing.IngestID, err)
	}
	update := ParseStatus(raw)
	prev := ing.Status
	ing.Polls++
	if update.Status != "" {
		ing.Status = update.Status
	}
	ing.Error = update.Error
	if err := s.store.UpdateStatus(ctx, ing.ID, ing.Status, ing.Error, ing.Polls); err != nil {
		return nil, err
	}
	if ing.Status != prev {
		s.notify(ctx, ing)
	}
	if ing.Terminal() {
		s.logger.Info("media ingest finished",
			zap.String("id", ing.ID.String()),
			zap.String("status", ing.Status),
			zap.String("error", ing.Error),
		)
		s.cleanup(ctx, ing)
	}
	return ing, nil
}

// Abandon marks ingest id as timed out and releases its staged upload.
func (s *Service) Abandon(ctx context.Context, id uuid.UUID) error {
	ing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if ing.Terminal() {
		return nil
	}
	if err := s.store.UpdateStatus(ctx, ing.ID, StatusTimedOut, "status polling gave up", ing.Polls); err != nil {
		return err
	}
	s.logger.Warn("media ingest abandoned", zap.String("id", ing.ID.String()), zap.Int("polls", ing.Polls))
	ing.Status = StatusTimedOut
	ing.Error = "status polling gave up"
	s.notify(ctx, ing)
	s.cleanup(ctx, ing)
	return nil
}

func (s *Service) cleanup(ctx context.Context, ing *Ingest) {
	if ing.S3Key == "" || s.stager == nil {
		return
	}
	s.discard(ctx, ing.S3Key)
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.stager.DeleteStaged(ctx, key); err != nil {
		s.logger.Warn("delete staged upload failed", zap.String("key", key), zap.Error(err))
	}
}
