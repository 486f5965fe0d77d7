package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/viostream/internal/viostream"
	"github.com/aura-webinar/viostream/pkg/queue"
)

type fakeAPI struct {
	created   []viostream.IngestRequest
	createRaw string
	createErr error
	status    map[string]string
	statusErr error
	statusHit int
}

func (f *fakeAPI) CreateMediaIngest(_ context.Context, req viostream.IngestRequest) (json.RawMessage, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return json.RawMessage(f.createRaw), nil
}

func (f *fakeAPI) IngestStatus(_ context.Context, id string) (json.RawMessage, error) {
	f.statusHit++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return json.RawMessage(f.status[id]), nil
}

type memStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]Ingest
}

func newMemStore() *memStore { return &memStore{rows: map[uuid.UUID]Ingest{}} }

func (m *memStore) Create(_ context.Context, ing *Ingest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ing.CreatedAt = time.Now()
	ing.UpdatedAt = ing.CreatedAt
	m.rows[ing.ID] = *ing
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*Ingest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ing, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ing, nil
}

func (m *memStore) List(_ context.Context, limit int) ([]Ingest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Ingest{}
	for _, ing := range m.rows {
		if len(out) == limit {
			break
		}
		out = append(out, ing)
	}
	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id uuid.UUID, status, errMsg string, polls int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ing, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	ing.Status, ing.Error, ing.Polls = status, errMsg, polls
	m.rows[id] = ing
	return nil
}

type fakeStager struct {
	staged   map[string][]byte
	deleted  []string
	stageErr error
}

func newFakeStager() *fakeStager { return &fakeStager{staged: map[string][]byte{}} }

func (f *fakeStager) Stage(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	if f.stageErr != nil {
		return f.stageErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.staged[key] = b
	return nil
}

func (f *fakeStager) SourceURL(_ context.Context, key string) (string, error) {
	if _, ok := f.staged[key]; !ok {
		return "", errors.New("no such key")
	}
	return "https://staging.example/" + key + "?sig=1", nil
}

func (f *fakeStager) DeleteStaged(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.staged, key)
	return nil
}

type fakeScheduler struct {
	payloads []queue.IngestPollPayload
	delays   []time.Duration
}

func (f *fakeScheduler) EnqueueIngestPoll(_ context.Context, p queue.IngestPollPayload, d time.Duration) error {
	f.payloads = append(f.payloads, p)
	f.delays = append(f.delays, d)
	return nil
}

type recordingNotifier struct {
	statuses []string
}

func (r *recordingNotifier) IngestChanged(_ context.Context, ing *Ingest) {
	r.statuses = append(r.statuses, ing.Status)
}
