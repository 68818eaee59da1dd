package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/heysubinoy/kvgate/internal/store"
	"github.com/heysubinoy/kvgate/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("connection refused")
}

func (failingStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func newTestRouter(t *testing.T, s kv.Store) *mux.Router {
	t.Helper()
	r := mux.NewRouter().UseEncodedPath()
	NewServer(logr.Discard(), s).AddHandlers(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer(t *testing.T) {
	srv := miniredis.RunT(t)
	port, err := strconv.Atoi(srv.Port())
	require.NoError(t, err)
	redisStore, err := store.NewRedisStore(store.RedisConfig{Host: srv.Host(), Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { redisStore.Close() })

	backends := map[string]kv.Store{
		"memory": store.NewMemStore(),
		"redis":  redisStore,
	}
	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			r := newTestRouter(t, backend)

			t.Run("create then read", func(t *testing.T) {
				w := do(t, r, http.MethodPost, "/redis/create", `{"key":"a","value":"1"}`)
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, CreatedMessage, w.Body.String())
				assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))

				w = do(t, r, http.MethodGet, "/redis/key/a", "")
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, "1", w.Body.String())
			})

			t.Run("overwrite", func(t *testing.T) {
				do(t, r, http.MethodPost, "/redis/create", `{"key":"b","value":"v1"}`)
				do(t, r, http.MethodPost, "/redis/create", `{"key":"b","value":"v2"}`)

				w := do(t, r, http.MethodGet, "/redis/key/b", "")
				assert.Equal(t, "v2", w.Body.String())
			})

			t.Run("empty value", func(t *testing.T) {
				w := do(t, r, http.MethodPost, "/redis/create", `{"key":"empty","value":""}`)
				assert.Equal(t, http.StatusOK, w.Code)

				w = do(t, r, http.MethodGet, "/redis/key/empty", "")
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, "", w.Body.String())
			})

			t.Run("keys with reserved characters", func(t *testing.T) {
				for _, key := range []string{"user/1", "a/b/c", "100%", "with space", "q?x=1", "frag#1"} {
					body := `{"key":` + strconv.Quote(key) + `,"value":"v-` + key + `"}`
					w := do(t, r, http.MethodPost, "/redis/create", body)
					require.Equal(t, http.StatusOK, w.Code, key)

					w = do(t, r, http.MethodGet, "/redis/key/"+url.PathEscape(key), "")
					assert.Equal(t, http.StatusOK, w.Code, key)
					assert.Equal(t, "v-"+key, w.Body.String(), key)
				}
			})

			t.Run("literal slash in path", func(t *testing.T) {
				do(t, r, http.MethodPost, "/redis/create", `{"key":"user/2","value":"x"}`)

				w := do(t, r, http.MethodGet, "/redis/key/user/2", "")
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, "x", w.Body.String())
			})

			t.Run("missing key reads empty", func(t *testing.T) {
				w := do(t, r, http.MethodGet, "/redis/key/never-written", "")
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, "", w.Body.String())
			})

			t.Run("self-test", func(t *testing.T) {
				w := do(t, r, http.MethodGet, "/redis/test", "")
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, "Redis is working!", w.Body.String())

				got, found, err := backend.Get(context.Background(), SelfTestKey)
				require.NoError(t, err)
				assert.True(t, found)
				assert.Equal(t, SelfTestValue, got)
			})
		})
	}
}

func TestServer_BadRequests(t *testing.T) {
	r := newTestRouter(t, store.NewMemStore())

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"key":`, "Invalid JSON"},
		{"missing key", `{"value":"1"}`, "Missing key field"},
		{"empty key", `{"key":"","value":"1"}`, "Missing key field"},
		{"null key", `{"key":null,"value":"1"}`, "Missing key field"},
		{"missing value", `{"key":"a"}`, "Missing value field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/redis/create", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	r := newTestRouter(t, store.NewMemStore())

	w := do(t, r, http.MethodGet, "/redis/create", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = do(t, r, http.MethodPost, "/redis/key/a", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_StoreFailure(t *testing.T) {
	r := newTestRouter(t, failingStore{})

	w := do(t, r, http.MethodPost, "/redis/create", `{"key":"a","value":"1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(t, r, http.MethodGet, "/redis/key/a", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(t, r, http.MethodGet, "/redis/test", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
