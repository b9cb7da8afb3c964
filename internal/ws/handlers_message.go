package ws

import (
	"context"
	"encoding/json"

	"github.com/Smeruxa/STalk-Messenger/internal/metrics"
	"github.com/Smeruxa/STalk-Messenger/internal/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type messageRef struct {
	ID int64 `json:"id"`
}

// handleSendMessage persists the message, re-reads it joined with its
// reply target, then fans it out. Persistence strictly precedes
// delivery: a message is never seen live before it has a durable id.
func (rt *Router) handleSendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var req sendMessagePayload
	if err := json.Unmarshal(data, &req); err != nil || req.To <= 0 || req.Content == "" {
		return nil
	}

	id, err := rt.store.CreateMessage(ctx, c.Identity.ID, req.To, req.Content, req.replyToID())
	if err != nil {
		return err
	}
	metrics.MessagesSent.Inc()

	msg, err := rt.store.GetMessageWithReply(ctx, id)
	if err != nil {
		return err
	}
	if msg == nil {
		// Deleted between insert and re-read; nothing to deliver.
		return nil
	}

	rt.emit(c, "new_message_channel", msg)
	rt.emitTo(req.To, "new_message_channel", msg)
	return nil
}

// handleGetDialogs loads the most recent message per counterpart.
func (rt *Router) handleGetDialogs(ctx context.Context, c *Client) error {
	dialogs, err := rt.store.ListDialogs(ctx, c.Identity.ID)
	if err != nil {
		return err
	}
	if dialogs == nil {
		dialogs = []models.Dialog{}
	}
	rt.emit(c, "dialogs", dialogs)
	return nil
}

// handleGetMessages pages through one conversation. The store returns
// newest-first; the client receives the page in chronological order.
func (rt *Router) handleGetMessages(ctx context.Context, c *Client, data json.RawMessage) error {
	req := getMessagesPayload{Limit: defaultPageLimit}
	if err := json.Unmarshal(data, &req); err != nil || req.WithUserID <= 0 {
		return nil
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Limit <= 0 {
		req.Limit = defaultPageLimit
	}
	if req.Limit > maxPageLimit {
		req.Limit = maxPageLimit
	}

	messages, err := rt.store.ListMessages(ctx, c.Identity.ID, req.WithUserID, req.Offset, req.Limit)
	if err != nil {
		return err
	}

	// Reverse to ascending for the client
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	if messages == nil {
		messages = []models.Message{}
	}
	rt.emit(c, "messages", messages)
	return nil
}

// handleDeleteMessage deletes a message the caller participates in.
// Zero affected rows (missing or not a participant) means no fan-out
// at all, so callers cannot probe other people's messages.
func (rt *Router) handleDeleteMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var req messageRefPayload
	if err := json.Unmarshal(data, &req); err != nil || req.ID <= 0 {
		return nil
	}

	deleted, err := rt.store.DeleteMessage(ctx, req.ID, c.Identity.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}

	rt.emit(c, "message_deleted", messageRef{ID: req.ID})
	rt.emitTo(req.WithUserID, "message_deleted", messageRef{ID: req.ID})
	return nil
}

// handleEditMessage updates content for the message's sender only.
func (rt *Router) handleEditMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var req editMessagePayload
	if err := json.Unmarshal(data, &req); err != nil || req.ID <= 0 || req.Content == "" {
		return nil
	}

	msg, err := rt.store.EditMessage(ctx, req.ID, c.Identity.ID, req.Content)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	rt.emit(c, "message_edited", msg)
	rt.emitTo(req.WithUserID, "message_edited", msg)
	return nil
}

// handleReadMessage sets the read flag where the caller is the receiver.
func (rt *Router) handleReadMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var req messageRefPayload
	if err := json.Unmarshal(data, &req); err != nil || req.ID <= 0 {
		return nil
	}

	marked, err := rt.store.MarkRead(ctx, req.ID, c.Identity.ID)
	if err != nil {
		return err
	}
	if !marked {
		return nil
	}

	rt.emit(c, "message_read", messageRef{ID: req.ID})
	rt.emitTo(req.WithUserID, "message_read", messageRef{ID: req.ID})
	return nil
}
