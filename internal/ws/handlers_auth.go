package ws

import (
	"context"
	"encoding/json"

	"github.com/Smeruxa/STalk-Messenger/internal/auth"
	"github.com/Smeruxa/STalk-Messenger/internal/throttle"
)

type loginSuccess struct {
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
}

// handleRegister creates an account. Duplicate usernames are surfaced
// explicitly via a pre-insert existence check; store failures collapse
// to a generic message.
func (rt *Router) handleRegister(ctx context.Context, c *Client, data json.RawMessage) error {
	var req credentialsPayload
	if err := json.Unmarshal(data, &req); err != nil || req.Username == "" || req.Password == "" {
		rt.emit(c, "register_error", msgCredentialsRequired)
		return nil
	}

	existing, err := rt.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		rt.emit(c, "register_error", msgDatabaseError)
		return err
	}
	if existing != nil {
		rt.emit(c, "register_error", msgUsernameTaken)
		return nil
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		rt.emit(c, "register_error", msgServerError)
		return err
	}

	if _, err := rt.store.CreateUser(ctx, req.Username, hash); err != nil {
		rt.emit(c, "register_error", msgDatabaseError)
		return err
	}

	rt.emit(c, "register_success", nil)
	return nil
}

// handleLogin verifies credentials and issues a signed token. A banned
// subnet short-circuits before the credential check; wrong credentials
// feed the throttle. The response never reveals remaining attempts.
func (rt *Router) handleLogin(ctx context.Context, c *Client, data json.RawMessage) error {
	subnet := throttle.SubnetKey(c.Remote)

	if rt.throttle.IsBanned(ctx, subnet) {
		rt.emit(c, "login_error", msgTooManyAttempts)
		return nil
	}

	var req credentialsPayload
	if err := json.Unmarshal(data, &req); err != nil || req.Username == "" || req.Password == "" {
		rt.emit(c, "login_error", msgCredentialsRequired)
		return nil
	}

	user, err := rt.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		rt.emit(c, "login_error", msgDatabaseError)
		return err
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		rt.throttle.RecordFailure(ctx, subnet)
		rt.emit(c, "login_error", msgInvalidCredentials)
		return nil
	}

	rt.throttle.Clear(ctx, subnet)

	token, err := rt.tokens.Sign(user.ID, user.Username)
	if err != nil {
		rt.emit(c, "login_error", msgServerError)
		return err
	}

	rt.emit(c, "login_success", loginSuccess{Token: token, UserID: user.ID})
	return nil
}

// handleChangePassword re-verifies the old password before replacing it.
func (rt *Router) handleChangePassword(ctx context.Context, c *Client, data json.RawMessage) error {
	var req changePasswordPayload
	if err := json.Unmarshal(data, &req); err != nil || req.OldPassword == "" || req.NewPassword == "" {
		rt.emit(c, "change_password_error", msgBothPasswords)
		return nil
	}

	user, err := rt.store.GetUserByID(ctx, c.Identity.ID)
	if err != nil {
		rt.emit(c, "change_password_error", msgServerError)
		return err
	}
	if user == nil {
		rt.emit(c, "change_password_error", msgUserNotFound)
		return nil
	}
	if !auth.CheckPassword(user.PasswordHash, req.OldPassword) {
		rt.emit(c, "change_password_error", msgOldPasswordWrong)
		return nil
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		rt.emit(c, "change_password_error", msgServerError)
		return err
	}
	if err := rt.store.UpdatePassword(ctx, c.Identity.ID, hash); err != nil {
		rt.emit(c, "change_password_error", msgServerError)
		return err
	}

	rt.emit(c, "change_password_success", nil)
	return nil
}
