package ws

import (
	"context"
	"encoding/json"

	"github.com/Smeruxa/STalk-Messenger/internal/models"
)

const searchResultLimit = 20

type typingNotice struct {
	FromUserID int64 `json:"fromUserId"`
}

// handleSearchUsers matches usernames case-insensitively, excluding the
// caller and anyone who opted out of discoverability.
func (rt *Router) handleSearchUsers(ctx context.Context, c *Client, data json.RawMessage) error {
	var req searchUsersPayload
	if err := json.Unmarshal(data, &req); err != nil || req.Query == "" {
		return nil
	}

	users, err := rt.store.SearchUsers(ctx, req.Query, c.Identity.ID, searchResultLimit)
	if err != nil {
		return err
	}
	if users == nil {
		users = []models.User{}
	}

	results := make([]map[string]any, 0, len(users))
	for _, u := range users {
		results = append(results, map[string]any{"id": u.ID, "username": u.Username})
	}
	rt.emit(c, "search_results", results)
	return nil
}

// handleSetCanShow toggles search discoverability. The payload is a bare bool.
func (rt *Router) handleSetCanShow(ctx context.Context, c *Client, data json.RawMessage) error {
	var value bool
	if err := json.Unmarshal(data, &value); err != nil {
		return nil
	}
	return rt.store.SetCanShow(ctx, c.Identity.ID, value)
}

func (rt *Router) handleGetCanShow(ctx context.Context, c *Client) error {
	user, err := rt.store.GetUserByID(ctx, c.Identity.ID)
	if err != nil || user == nil {
		rt.emit(c, "can_show", false)
		return err
	}
	rt.emit(c, "can_show", user.CanShow)
	return nil
}

// handleSetAgreeScreen toggles screenshot consent. The payload is a bare bool.
func (rt *Router) handleSetAgreeScreen(ctx context.Context, c *Client, data json.RawMessage) error {
	var value bool
	if err := json.Unmarshal(data, &value); err != nil {
		return nil
	}
	return rt.store.SetAgreeScreen(ctx, c.Identity.ID, value)
}

func (rt *Router) handleGetAgreeScreen(ctx context.Context, c *Client) error {
	user, err := rt.store.GetUserByID(ctx, c.Identity.ID)
	if err != nil || user == nil {
		rt.emit(c, "agree_screen", false)
		return err
	}
	rt.emit(c, "agree_screen", user.AgreeScreen)
	return nil
}

// handleGetLastStatus returns the counterpart's presence timestamps.
func (rt *Router) handleGetLastStatus(ctx context.Context, c *Client, data json.RawMessage) error {
	var req withUserPayload
	if err := json.Unmarshal(data, &req); err != nil || req.WithUserID <= 0 {
		return nil
	}

	status, err := rt.store.GetUserStatus(ctx, req.WithUserID)
	if err != nil {
		return err
	}
	if status == nil {
		status = &models.UserStatus{FromUserID: req.WithUserID}
	}
	rt.emit(c, "last_status", status)
	return nil
}

// handleUpdateTyping bumps the caller's typing/online timestamps and
// notifies the counterpart they are being typed to.
func (rt *Router) handleUpdateTyping(ctx context.Context, c *Client, data json.RawMessage) error {
	var req typingPayload
	if err := json.Unmarshal(data, &req); err != nil {
		return nil
	}

	if err := rt.store.TouchTyping(ctx, c.Identity.ID); err != nil {
		return err
	}

	notice := typingNotice{FromUserID: c.Identity.ID}
	rt.emit(c, "typing", notice)
	rt.emitTo(req.To, "typing", notice)
	return nil
}

func (rt *Router) handleUpdateOnline(ctx context.Context, c *Client) error {
	return rt.store.TouchOnline(ctx, c.Identity.ID)
}

// handleUploadAvatar records an already-uploaded avatar path. The file
// itself goes through the HTTP upload endpoint; the core only ever
// stores the path string.
func (rt *Router) handleUploadAvatar(ctx context.Context, c *Client, data json.RawMessage) error {
	var req avatarPayload
	if err := json.Unmarshal(data, &req); err != nil || req.AvatarPath == "" {
		rt.emit(c, "avatar_update_error", msgAvatarUpdateFailed)
		return nil
	}

	if err := rt.store.UpdateAvatar(ctx, c.Identity.ID, req.AvatarPath); err != nil {
		rt.emit(c, "avatar_update_error", msgAvatarUpdateFailed)
		return err
	}
	rt.emit(c, "avatar_update_success", nil)
	return nil
}

func (rt *Router) handleGetAvatar(ctx context.Context, c *Client) error {
	user, err := rt.store.GetUserByID(ctx, c.Identity.ID)
	if err != nil || user == nil {
		rt.emit(c, "avatar_url", "")
		return err
	}
	rt.emit(c, "avatar_url", user.Avatar)
	return nil
}

func (rt *Router) handleGetUsername(ctx context.Context, c *Client) error {
	user, err := rt.store.GetUserByID(ctx, c.Identity.ID)
	if err != nil || user == nil {
		rt.emit(c, "username", "")
		return err
	}
	rt.emit(c, "username", user.Username)
	return nil
}
