package ingest

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/aura-webinar/viostream/internal/viostream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ingestRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.POST("/admin/ingests", h.Create)
	r.GET("/admin/ingests", h.List)
	r.GET("/admin/ingests/:id/status", h.Status)
	return r
}

func send(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCreateFromURL(t *testing.T) {
	api := &fakeAPI{createRaw: `{"ingestId":"ing-1"}`}
	r := ingestRouter(NewHandler(NewService(api, newMemStore(), nil, nil, 0, nil), 0, nil))

	w := send(r, jsonRequest(http.MethodPost, "/admin/ingests", `{"source_url":"https://cdn.example.com/a.mp4"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ing-1", gjson.Get(w.Body.String(), "data.ingest_id").String())
	assert.Equal(t, "submitted", gjson.Get(w.Body.String(), "data.status").String())
	assert.False(t, gjson.Get(w.Body.String(), "data.SourceURL").Exists())

	w = send(r, jsonRequest(http.MethodPost, "/admin/ingests", `{"source_url":"not a url"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, jsonRequest(http.MethodPost, "/admin/ingests", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProviderErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{viostream.ErrNotConfigured, http.StatusForbidden},
		{&viostream.RequestError{Status: 401}, http.StatusForbidden},
		{&viostream.RequestError{Status: 500}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		api := &fakeAPI{createErr: tt.err}
		r := ingestRouter(NewHandler(NewService(api, newMemStore(), nil, nil, 0, nil), 0, nil))
		w := send(r, jsonRequest(http.MethodPost, "/admin/ingests", `{"source_url":"https://cdn.example.com/a.mp4"}`))
		assert.Equal(t, tt.status, w.Code, tt.err.Error())
	}
}

func multipartRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("reference_id", "ref-9"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/admin/ingests", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateFromUpload(t *testing.T) {
	api := &fakeAPI{createRaw: `{"ingestId":"ing-up"}`}
	stager := newFakeStager()
	r := ingestRouter(NewHandler(NewService(api, newMemStore(), stager, nil, 0, nil), 1024, nil))

	w := send(r, multipartRequest(t, "clip.mp4", "video-bytes"))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, api.created, 1)
	assert.Equal(t, "ref-9", api.created[0].ReferenceID)
	assert.Len(t, stager.staged, 1)

	w = send(r, multipartRequest(t, "big.mp4", string(make([]byte, 2048))))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, multipartRequest(t, "photo.png", "x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateFromUploadDisabled(t *testing.T) {
	r := ingestRouter(NewHandler(NewService(&fakeAPI{}, newMemStore(), nil, nil, 0, nil), 0, nil))
	w := send(r, multipartRequest(t, "clip.mp4", "x"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusAndList(t *testing.T) {
	api := &fakeAPI{createRaw: `{"ingestId":"ing-s"}`, status: map[string]string{"ing-s": `{"status":"Failed","error":"unreadable"}`}}
	r := ingestRouter(NewHandler(NewService(api, newMemStore(), nil, nil, 0, nil), 0, nil))

	w := send(r, jsonRequest(http.MethodPost, "/admin/ingests", `{"source_url":"https://cdn.example.com/a.mp4"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	id := gjson.Get(w.Body.String(), "data.id").String()

	w = send(r, httptest.NewRequest(http.MethodGet, "/admin/ingests/"+id+"/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Failed", gjson.Get(w.Body.String(), "data.status").String())
	assert.Equal(t, "unreadable", gjson.Get(w.Body.String(), "data.error").String())

	w = send(r, httptest.NewRequest(http.MethodGet, "/admin/ingests/"+uuid.NewString()+"/status", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send(r, httptest.NewRequest(http.MethodGet, "/admin/ingests/nope/status", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, httptest.NewRequest(http.MethodGet, "/admin/ingests?limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, gjson.Get(w.Body.String(), "data").Array(), 1)
}
