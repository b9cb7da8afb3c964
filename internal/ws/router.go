package ws

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/Smeruxa/STalk-Messenger/internal/auth"
	"github.com/Smeruxa/STalk-Messenger/internal/metrics"
	"github.com/Smeruxa/STalk-Messenger/internal/store"
	"github.com/Smeruxa/STalk-Messenger/internal/throttle"
)

// User-facing error messages. Infrastructure detail never leaks to the
// client; the real error goes to the log.
const (
	msgCredentialsRequired = "Enter a username and password"
	msgUsernameTaken       = "That username is already taken"
	msgInvalidCredentials  = "Invalid credentials"
	msgTooManyAttempts     = "Too many attempts, try again in an hour"
	msgDatabaseError       = "Database error"
	msgBothPasswords       = "Enter both passwords"
	msgUserNotFound        = "User not found"
	msgOldPasswordWrong    = "Old password is incorrect"
	msgServerError         = "Server error"
	msgAvatarUpdateFailed  = "Failed to update avatar"
)

// Router is the protocol state machine for all post-connection events.
// It holds no per-event state of its own; everything it needs comes
// from the registry, the stores, and the event payload.
type Router struct {
	store    store.DataStore
	throttle *throttle.LoginThrottle
	tokens   *auth.Tokens
	registry *Registry
	logger   zerolog.Logger
}

// NewRouter creates the event router.
func NewRouter(dataStore store.DataStore, loginThrottle *throttle.LoginThrottle, tokens *auth.Tokens, registry *Registry, logger zerolog.Logger) *Router {
	return &Router{
		store:    dataStore,
		throttle: loginThrottle,
		tokens:   tokens,
		registry: registry,
		logger:   logger,
	}
}

// Registry exposes the session registry owned by the router.
func (rt *Router) Registry() *Registry {
	return rt.registry
}

// Dispatch decodes one inbound frame and runs its handler. Handler
// failures are logged and isolated to the issuing connection; nothing
// here is fatal to the process.
func (rt *Router) Dispatch(ctx context.Context, c *Client, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		rt.logger.Debug().Str("conn_id", c.ConnID).Msg("dropping malformed frame")
		return
	}

	metrics.EventsTotal.WithLabelValues(env.Event).Inc()

	var err error
	switch env.Event {
	case evRegister:
		err = rt.handleRegister(ctx, c, env.Data)
	case evLogin:
		err = rt.handleLogin(ctx, c, env.Data)
	default:
		// Everything past the handshake requires a verified identity.
		// Events from unverified connections are dropped, matching the
		// behavior of never registering their handlers.
		if !c.Verified() {
			rt.logger.Debug().Str("conn_id", c.ConnID).Str("event", env.Event).Msg("dropping event from unverified connection")
			return
		}
		err = rt.dispatchVerified(ctx, c, env.Event, env.Data)
	}

	if err != nil {
		metrics.EventErrors.WithLabelValues(env.Event).Inc()
		rt.logger.Error().
			Err(err).
			Str("conn_id", c.ConnID).
			Str("event", env.Event).
			Msg("event handler failed")
	}
}

func (rt *Router) dispatchVerified(ctx context.Context, c *Client, event string, data json.RawMessage) error {
	switch event {
	case evSendMessage:
		return rt.handleSendMessage(ctx, c, data)
	case evGetDialogs:
		return rt.handleGetDialogs(ctx, c)
	case evGetMessages:
		return rt.handleGetMessages(ctx, c, data)
	case evSearchUsers:
		return rt.handleSearchUsers(ctx, c, data)
	case evSetCanShow:
		return rt.handleSetCanShow(ctx, c, data)
	case evGetCanShow:
		return rt.handleGetCanShow(ctx, c)
	case evGetLastStatus:
		return rt.handleGetLastStatus(ctx, c, data)
	case evUpdateTyping:
		return rt.handleUpdateTyping(ctx, c, data)
	case evUpdateOnline:
		return rt.handleUpdateOnline(ctx, c)
	case evChangePassword:
		return rt.handleChangePassword(ctx, c, data)
	case evUploadAvatar:
		return rt.handleUploadAvatar(ctx, c, data)
	case evGetAvatar:
		return rt.handleGetAvatar(ctx, c)
	case evGetUsername:
		return rt.handleGetUsername(ctx, c)
	case evSetAgreeScreen:
		return rt.handleSetAgreeScreen(ctx, c, data)
	case evGetAgreeScreen:
		return rt.handleGetAgreeScreen(ctx, c)
	case evDeleteMessage:
		return rt.handleDeleteMessage(ctx, c, data)
	case evReadMessage:
		return rt.handleReadMessage(ctx, c, data)
	case evEditMessage:
		return rt.handleEditMessage(ctx, c, data)
	case evCallUser:
		return rt.handleCallUser(ctx, c, data)
	case evAnswerCall:
		return rt.handleAnswerCall(ctx, c, data)
	case evIceCandidate:
		return rt.handleIceCandidate(ctx, c, data)
	case evEndCall:
		return rt.handleEndCall(ctx, c, data)
	default:
		rt.logger.Debug().Str("conn_id", c.ConnID).Str("event", event).Msg("unknown event")
		return nil
	}
}

// emit writes an event to a client, demoting write failures to a log
// line: a dead peer connection must not fail the sender's handler.
func (rt *Router) emit(c *Client, event string, data any) {
	if err := c.Emit(event, data); err != nil {
		rt.logger.Debug().
			Err(err).
			Str("conn_id", c.ConnID).
			Str("event", event).
			Msg("write to client failed")
	}
}

// emitTo fans an event out to the resolved session of a user, if any.
// An offline target is not an error.
func (rt *Router) emitTo(userID int64, event string, data any) {
	if peer, ok := rt.registry.Resolve(userID); ok {
		rt.emit(peer, event, data)
	}
}
