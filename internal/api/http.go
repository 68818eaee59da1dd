package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/heysubinoy/kvgate/pkg/kv"
)

const (
	// CreatedMessage acknowledges a successful write.
	CreatedMessage = "Key-Value pair created in Redis"

	// SelfTestKey and SelfTestValue are written and read back by the self-test
	// endpoint.
	SelfTestKey   = "redis-test-key"
	SelfTestValue = "Redis is working!"
)

// Server wraps a kv.Store and exposes HTTP endpoints for KV operations.
type Server struct {
	logr.Logger

	Store kv.Store
}

// NewServer creates a new HTTP handler set with the given store.
func NewServer(logger logr.Logger, store kv.Store) *Server {
	return &Server{
		Logger: logger,
		Store:  store,
	}
}

// AddHandlers registers all KV handlers on the given router. The router must
// match on the encoded path (mux.Router.UseEncodedPath) so that keys
// containing a percent-encoded slash reach handleGet intact.
func (s *Server) AddHandlers(r *mux.Router) {
	r.HandleFunc("/redis/create", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/redis/key/{key:.+}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/redis/test", s.handleTest).Methods(http.MethodGet)
}

// handleCreate handles POST /redis/create requests with JSON body.
// Expects: {"key": "foo", "value": "bar"}
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key   *string `json:"key"`
		Value *string `json:"value"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Key == nil || *req.Key == "" {
		http.Error(w, "Missing key field", http.StatusBadRequest)
		return
	}
	if req.Value == nil {
		http.Error(w, "Missing value field", http.StatusBadRequest)
		return
	}

	if err := s.Store.Set(r.Context(), *req.Key, *req.Value); err != nil {
		s.Error(err, "setting key", "key", *req.Key)
		http.Error(w, "Failed to set key", http.StatusInternalServerError)
		return
	}

	writeText(w, CreatedMessage)
}

// handleGet handles GET /redis/key/{key} requests.
// Returns the value as plain text, or an empty body if the key is not set.
// Keys may contain slashes, either literal or percent-encoded.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(mux.Vars(r)["key"])
	if err != nil {
		http.Error(w, "Invalid key", http.StatusBadRequest)
		return
	}

	value, _, err := s.Store.Get(r.Context(), key)
	if err != nil {
		s.Error(err, "getting key", "key", key)
		http.Error(w, "Failed to get key", http.StatusInternalServerError)
		return
	}

	writeText(w, value)
}

// handleTest handles GET /redis/test, writing a sentinel pair and returning
// what is read back.
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Set(r.Context(), SelfTestKey, SelfTestValue); err != nil {
		s.Error(err, "self-test write")
		http.Error(w, "Failed to set key", http.StatusInternalServerError)
		return
	}

	value, _, err := s.Store.Get(r.Context(), SelfTestKey)
	if err != nil {
		s.Error(err, "self-test read")
		http.Error(w, "Failed to get key", http.StatusInternalServerError)
		return
	}

	writeText(w, value)
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(body))
}
