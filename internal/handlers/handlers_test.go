package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Smeruxa/STalk-Messenger/internal/auth"
	"github.com/Smeruxa/STalk-Messenger/internal/models"
	"github.com/Smeruxa/STalk-Messenger/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, *store.SQLiteStore, *auth.Tokens, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tokens := auth.NewTokens("test-secret")
	uploadDir := filepath.Join(dir, "uploads")
	h := New(s, nil, tokens, zerolog.Nop(), uploadDir, "/uploads")
	return h, s, tokens, uploadDir
}

func createHandlerUser(t *testing.T, s *store.SQLiteStore, username string) *models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), username, "hash")
	require.NoError(t, err)
	return user
}

func TestHealthEndpoint(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "healthy", resp.Status)
	require.Equal(t, "pass", resp.Checks["database"].Status)
	require.Equal(t, "not configured", resp.Checks["redis"].Message)
}

func multipartAvatar(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("avatar", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadAvatarRequiresAuth(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	body, contentType := multipartAvatar(t, "pic.png", []byte("fake png"))
	req := httptest.NewRequest(http.MethodPost, "/upload-avatar", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.UploadAvatar(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadAvatarStoresFileAndPath(t *testing.T) {
	h, s, tokens, uploadDir := newTestHandler(t)
	user := createHandlerUser(t, s, "alice")
	token, err := tokens.Sign(user.ID, user.Username)
	require.NoError(t, err)

	body, contentType := multipartAvatar(t, "pic.png", []byte("fake png"))
	req := httptest.NewRequest(http.MethodPost, "/upload-avatar", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.UploadAvatar(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, strings.HasPrefix(resp.Avatar, "/uploads/"))
	require.True(t, strings.HasSuffix(resp.Avatar, ".png"))

	// The file landed on disk and the profile points at it.
	data, err := os.ReadFile(filepath.Join(uploadDir, filepath.Base(resp.Avatar)))
	require.NoError(t, err)
	require.Equal(t, []byte("fake png"), data)

	updated, err := s.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, resp.Avatar, updated.Avatar)
}

func TestUploadAvatarReplacesOldFile(t *testing.T) {
	h, s, tokens, uploadDir := newTestHandler(t)
	user := createHandlerUser(t, s, "alice")
	token, err := tokens.Sign(user.ID, user.Username)
	require.NoError(t, err)

	upload := func(content []byte) string {
		body, contentType := multipartAvatar(t, "pic.png", content)
		req := httptest.NewRequest(http.MethodPost, "/upload-avatar", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.UploadAvatar(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp UploadResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp.Avatar
	}

	first := upload([]byte("v1"))
	second := upload([]byte("v2"))
	require.NotEqual(t, first, second)

	_, err = os.Stat(filepath.Join(uploadDir, filepath.Base(first)))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(uploadDir, filepath.Base(second)))
	require.NoError(t, err)
}

func TestUploadAvatarMissingFile(t *testing.T) {
	h, s, tokens, _ := newTestHandler(t)
	user := createHandlerUser(t, s, "alice")
	token, err := tokens.Sign(user.ID, user.Username)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/upload-avatar", strings.NewReader("no form"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.UploadAvatar(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
