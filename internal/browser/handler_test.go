package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/aura-webinar/viostream/internal/viostream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAPI struct {
	configured bool
	list       string
	listErr    error
	detail     string
	detailErr  error

	gotParams viostream.ListParams
	gotID     string
}

func (f *fakeAPI) IsConfigured(context.Context) bool { return f.configured }

func (f *fakeAPI) ListMedia(_ context.Context, p viostream.ListParams) (json.RawMessage, error) {
	f.gotParams = p
	if f.listErr != nil {
		return nil, f.listErr
	}
	return json.RawMessage(f.list), nil
}

func (f *fakeAPI) MediaDetail(_ context.Context, id, _ string) (json.RawMessage, error) {
	f.gotID = id
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return json.RawMessage(f.detail), nil
}

func newRouter(api MediaAPI) *gin.Engine {
	r := gin.New()
	NewHandler(api, "/browser", nil).Register(r.Group("/browser"))
	return r
}

func serve(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func jsonKeys(raw string) []string {
	var keys []string
	gjson.Parse(raw).ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	return keys
}

func TestSearchNotConfigured(t *testing.T) {
	w := serve(newRouter(&fakeAPI{}), "/browser/search")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"API not configured"}`, w.Body.String())
}

func TestSearchShapesItems(t *testing.T) {
	api := &fakeAPI{configured: true, list: `{"listResult":{
		"items":[{"id":"m1","key":"k1","title":"One","secret":"s","totalViews":7,"duration":"00:01:00"}],
		"totalItems":1,"totalPages":1,"pageNumber":2,"pageSize":10}}`}
	w := serve(newRouter(api), "/browser/search?page=2&page_size=10&sort=Title&order=asc&search=one")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, []string{"items", "totalItems", "totalPages", "pageNumber", "pageSize"}, jsonKeys(body))
	assert.Equal(t, int64(1), gjson.Get(body, "totalItems").Int())
	assert.Equal(t, int64(2), gjson.Get(body, "pageNumber").Int())
	assert.Equal(t, int64(10), gjson.Get(body, "pageSize").Int())
	assert.Equal(t, []string{"id", "key", "title", "duration", "totalViews"}, jsonKeys(gjson.Get(body, "items.0").Raw))
	assert.Equal(t, viostream.ListParams{SearchTerm: "one", SortColumn: "Title", SortOrder: "asc", PageSize: 10, PageNumber: 2}, api.gotParams)
}

func TestSearchDefaultsMissingCounters(t *testing.T) {
	api := &fakeAPI{configured: true, list: `{}`}
	w := serve(newRouter(api), "/browser/search")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"totalItems":0,"totalPages":0,"pageNumber":1,"pageSize":24}`, w.Body.String())
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"auth", &viostream.RequestError{Method: "GET", Endpoint: "/media", Status: 401}, http.StatusForbidden, MsgInvalidCredentials},
		{"not configured", viostream.ErrNotConfigured, http.StatusForbidden, MsgNotConfigured},
		{"server error", &viostream.RequestError{Method: "GET", Endpoint: "/media", Status: 500}, http.StatusInternalServerError, MsgRequestFailed},
		{"not found on list", &viostream.RequestError{Method: "GET", Endpoint: "/media", Status: 404}, http.StatusInternalServerError, MsgRequestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(newRouter(&fakeAPI{configured: true, listErr: tt.err}), "/browser/search")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, gjson.Get(w.Body.String(), "error").String())
		})
	}
}

func TestDetail(t *testing.T) {
	api := &fakeAPI{configured: true, detail: `{"id":"m1","key":"k1","title":"T","internal":"x",
		"download":{"url":"u","width":1920,"height":1080},"progressive":[{"width":640,"height":360}]}`}
	w := serve(newRouter(api), "/browser/media/k1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "k1", api.gotID)
	body := w.Body.String()
	assert.Equal(t, []string{"id", "key", "title", "description", "thumbnail", "status", "duration", "videoWidth", "videoHeight"}, jsonKeys(body))
	assert.Equal(t, int64(1920), gjson.Get(body, "videoWidth").Int())
	assert.Equal(t, int64(1080), gjson.Get(body, "videoHeight").Int())
	assert.Equal(t, gjson.Null, gjson.Get(body, "description").Type)
	assert.False(t, gjson.Get(body, "download").Exists())
}

func TestDetailErrors(t *testing.T) {
	w := serve(newRouter(&fakeAPI{}), "/browser/media/k1")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"API not configured"}`, w.Body.String())

	w = serve(newRouter(&fakeAPI{configured: true, detailErr: &viostream.RequestError{Status: 404}}), "/browser/media/k1")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Media not found"}`, w.Body.String())

	w = serve(newRouter(&fakeAPI{configured: true, detailErr: &viostream.RequestError{Status: 403}}), "/browser/media/k1")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(newRouter(&fakeAPI{configured: true, detailErr: &viostream.RequestError{Status: 0, Message: "dial tcp"}}), "/browser/media/k1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"API request failed"}`, w.Body.String())
}

func TestBrowse(t *testing.T) {
	w := serve(newRouter(&fakeAPI{}), "/browser")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "success").Bool())

	api := &fakeAPI{configured: true, list: `{"listResult":{"items":[{"id":"m1","key":"k1","extra":true}],"totalItems":1,"totalPages":1}}`}
	w = serve(newRouter(api), "/browser")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, "/browser/search", gjson.Get(body, "data.searchUrl").String())
	assert.Equal(t, "/browser/media/__MEDIA_ID__", gjson.Get(body, "data.detailUrlBase").String())
	assert.JSONEq(t, `[{"id":"m1","key":"k1"}]`, gjson.Get(body, "data.items").Raw)
	assert.Equal(t, DefaultPagination().ListParams(), api.gotParams)

	api = &fakeAPI{configured: true, listErr: &viostream.RequestError{Status: 500}}
	w = serve(newRouter(api), "/browser")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, gjson.Get(w.Body.String(), "data.items").Raw)
}

func TestPreview(t *testing.T) {
	api := &fakeAPI{configured: true, detail: `{"title":"Launch","thumbnail":"https://img/t.jpg"}`}
	r := newRouter(api)

	w := serve(r, "/browser/preview?value="+url.QueryEscape("https://share.viostream.com/abc123"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"value":"https://share.viostream.com/abc123","key":"abc123","title":"Launch","thumbnail":"https://img/t.jpg","empty":false}`, w.Body.String())
	assert.Equal(t, "abc123", api.gotID)

	w = serve(r, "/browser/preview?value=")
	assert.JSONEq(t, `{"value":"","empty":true}`, w.Body.String())

	w = serve(r, "/browser/preview?value="+url.QueryEscape("https://example.com/x"))
	assert.JSONEq(t, `{"value":"https://example.com/x","empty":false}`, w.Body.String())

	w = serve(newRouter(&fakeAPI{configured: true, detailErr: &viostream.RequestError{Status: 404}}), "/browser/preview?value=abc123")
	assert.JSONEq(t, `{"value":"abc123","key":"abc123","empty":false}`, w.Body.String())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Empty search, default sort: the provider sees the default paging and no SearchTerm,
// and the browser sees only whitelisted fields in whitelist order.
func TestSearchEndToEnd(t *testing.T) {
	var got *http.Request
	httpc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = r
		body := `{"listResult":{"items":[{"description":"d","accountId":"acc","id":"m1","title":"T","key":"k1","thumbnail":"th","status":"Ready","duration":"00:00:10","totalViews":3,"secret":"x"}],
			"totalItems":1,"totalPages":1,"pageNumber":1,"pageSize":24}}`
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString(body)), Header: make(http.Header)}, nil
	})}
	client := viostream.New(viostream.StaticCredentials{AccessKey: "VC-abc", APIKey: "secret"}, viostream.WithHTTPClient(httpc))

	w := serve(newRouter(client), "/browser/search?search=")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)

	q := got.URL.Query()
	assert.Equal(t, url.Values{
		"PageSize":   {"24"},
		"PageNumber": {"1"},
		"SortColumn": {"CreatedDate"},
		"SortOrder":  {"desc"},
	}, q)
	assert.Equal(t, "/v3/api/media", got.URL.Path)

	item := gjson.Get(w.Body.String(), "items.0").Raw
	assert.Equal(t, []string{"id", "key", "title", "description", "thumbnail", "status", "duration", "totalViews"}, jsonKeys(item))
}
