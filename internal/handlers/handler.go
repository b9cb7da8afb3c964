package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Smeruxa/STalk-Messenger/internal/auth"
	"github.com/Smeruxa/STalk-Messenger/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store  store.DataStore
	redis  *redis.Client // nil when throttling is disabled
	tokens *auth.Tokens
	logger zerolog.Logger

	uploadDir     string
	uploadURLPath string
}

// New creates a Handler with the given dependencies.
func New(dataStore store.DataStore, redisClient *redis.Client, tokens *auth.Tokens, logger zerolog.Logger, uploadDir, uploadURLPath string) *Handler {
	return &Handler{
		store:         dataStore,
		redis:         redisClient,
		tokens:        tokens,
		logger:        logger,
		uploadDir:     uploadDir,
		uploadURLPath: uploadURLPath,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// identityFromRequest verifies the Authorization bearer token.
func (h *Handler) identityFromRequest(r *http.Request) (auth.Identity, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return auth.Identity{}, false
	}
	identity, err := h.tokens.Verify(header[len(prefix):])
	if err != nil {
		return auth.Identity{}, false
	}
	return identity, true
}
