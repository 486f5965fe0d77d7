package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/aura-webinar/viostream/config"
	"github.com/aura-webinar/viostream/internal/auth"
)

type recorded struct {
	method string
	path   string
	query  string
	body   string
	user   string
}

func newServer(t *testing.T, reply string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		user, _, _ := r.BasicAuth()
		calls = append(calls, recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body), user: user})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Viostream: config.ViostreamConfig{AccessKey: "VC-abc", APIKey: "secret", BaseURL: baseURL, Timeout: 5 * time.Second},
		JWT:       config.JWTConfig{Secret: "test-secret", ExpireHours: 2},
	}
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(cfg, &out)
	cmd.SetArgs(args)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestAccount(t *testing.T) {
	srv, calls := newServer(t, `{"id":"acc","title":"Demo"}`)
	out, err := run(t, testConfig(srv.URL), "account")
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	assert.Equal(t, "/account/info", (*calls)[0].path)
	assert.Equal(t, "VC-abc", (*calls)[0].user)
	assert.Equal(t, "Demo", gjson.Get(out, "title").String())
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestMediaListFlags(t *testing.T) {
	srv, calls := newServer(t, `{"listResult":{"items":[]}}`)
	_, err := run(t, testConfig(srv.URL), "media", "list", "--search", "launch", "--page", "2", "--compact")
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	c := (*calls)[0]
	assert.Equal(t, "/media", c.path)
	assert.Contains(t, c.query, "SearchTerm=launch")
	assert.Contains(t, c.query, "PageNumber=2")
	assert.Contains(t, c.query, "PageSize=24")
	assert.Contains(t, c.query, "SortColumn=CreatedDate")
}

func TestMediaByIDsRepeatsKey(t *testing.T) {
	srv, calls := newServer(t, `[]`)
	_, err := run(t, testConfig(srv.URL), "media", "by-ids", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "/media/listbyids", (*calls)[0].path)
	assert.Equal(t, "mediaIds=a&mediaIds=b", (*calls)[0].query)
}

func TestIngestCreate(t *testing.T) {
	srv, calls := newServer(t, `{"ingestId":"ing-1"}`)
	out, err := run(t, testConfig(srv.URL), "ingest", "create",
		"--source-url", "https://cdn.example.com/v.mp4", "--filename", "v", "--extension", "mp4")
	require.NoError(t, err)
	c := (*calls)[0]
	assert.Equal(t, http.MethodPost, c.method)
	assert.Equal(t, "/media/new", c.path)
	assert.Equal(t, ".mp4", gjson.Get(c.body, "extension").String())
	assert.Equal(t, "https://cdn.example.com/v.mp4", gjson.Get(c.body, "sourceUrl").String())
	assert.Equal(t, "ing-1", gjson.Get(out, "ingestId").String())
}

func TestWhitelistUpdate(t *testing.T) {
	srv, calls := newServer(t, `{}`)
	_, err := run(t, testConfig(srv.URL), "whitelist", "add-media", "wl-1", "k1", "k2")
	require.NoError(t, err)
	c := (*calls)[0]
	assert.Equal(t, http.MethodPut, c.method)
	assert.Equal(t, "/whitelist/wl-1/addmedia", c.path)
	assert.JSONEq(t, `{"mediaPublicKeys":["k1","k2"]}`, c.body)

	_, err = run(t, testConfig(srv.URL), "whitelist", "remove-domains", "wl-1")
	assert.Error(t, err)
}

func TestWhitelistCreateTitleLimit(t *testing.T) {
	srv, calls := newServer(t, `{}`)
	_, err := run(t, testConfig(srv.URL), "whitelist", "create", "--title", strings.Repeat("x", 51))
	assert.Error(t, err)
	assert.Empty(t, *calls)

	_, err = run(t, testConfig(srv.URL), "whitelist", "create", "--title", "Intranet", "--domain", "a.example.com", "--domain", "b.example.com")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Intranet","domains":["a.example.com","b.example.com"]}`, (*calls)[0].body)
}

func TestMissingCredentials(t *testing.T) {
	srv, calls := newServer(t, `{}`)
	cfg := testConfig(srv.URL)
	cfg.Viostream.APIKey = ""
	_, err := run(t, cfg, "tags", "list")
	assert.ErrorIs(t, err, errMissingCredentials)
	assert.Empty(t, *calls)
}

func TestProviderErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	_, err := run(t, testConfig(srv.URL), "account")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestEmbedURL(t *testing.T) {
	out, err := run(t, testConfig(""), "embed-url", "https://share.viostream.com/abc123", "--autoplay", "--hide-controls")
	require.NoError(t, err)
	assert.Equal(t, "https://share.viostream.com/abc123?autoplay=1&controls=0\n", out)

	_, err = run(t, testConfig(""), "embed-url", "https://youtube.com/watch?v=1")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	cfg := testConfig("")
	out, err := run(t, cfg, "token", "--subject", "ops@example.com", "--role", "admin")
	require.NoError(t, err)

	var got tokenOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "admin", got.Role)
	assert.Equal(t, "2h", got.ExpiresIn)

	claims, err := auth.NewJWTService(cfg.JWT.Secret, 2).Validate(got.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)

	_, err = run(t, cfg, "token", "--subject", "x", "--role", "owner")
	assert.ErrorIs(t, err, auth.ErrInvalidRole)
}
