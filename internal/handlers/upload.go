package handlers

import (
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// defaultAvatarMarker identifies the stock avatar, which is never
// deleted when a user replaces their picture.
const defaultAvatarMarker = "stalk_default"

// UploadResponse represents the avatar upload response.
type UploadResponse struct {
	Avatar string `json:"avatar"`
}

// UploadAvatar stores an uploaded avatar file and records its public
// path on the user's profile. The realtime core only ever sees the
// resulting path string.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identityFromRequest(r)
	if !ok {
		h.Error(w, http.StatusUnauthorized, "invalid or missing token")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		h.Error(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		h.logger.Error().Err(err).Msg("failed to create upload directory")
		h.Error(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	// Random filename; the original name is untrusted input
	ext := strings.ToLower(filepath.Ext(header.Filename))
	filename := uuid.New().String() + ext
	dstPath := filepath.Join(h.uploadDir, filename)

	dst, err := os.Create(dstPath)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create avatar file")
		h.Error(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(dstPath)
		h.logger.Error().Err(err).Msg("failed to write avatar file")
		h.Error(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}
	dst.Close()

	// Best-effort removal of the previous file
	if user, err := h.store.GetUserByID(r.Context(), identity.ID); err == nil && user != nil {
		if user.Avatar != "" && !strings.Contains(user.Avatar, defaultAvatarMarker) {
			oldPath := filepath.Join(h.uploadDir, filepath.Base(user.Avatar))
			if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
				h.logger.Warn().Err(err).Str("path", oldPath).Msg("failed to remove old avatar")
			}
		}
	}

	avatarPath := path.Join(h.uploadURLPath, filename)
	if err := h.store.UpdateAvatar(r.Context(), identity.ID, avatarPath); err != nil {
		h.logger.Error().Err(err).Msg("failed to update avatar path")
		h.Error(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	h.JSON(w, http.StatusOK, UploadResponse{Avatar: avatarPath})
}
