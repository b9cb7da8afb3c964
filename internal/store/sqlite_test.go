package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Smeruxa/STalk-Messenger/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *SQLiteStore, username string) *models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), username, "hash-"+username)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user
}

func TestCreateUserDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "alice")
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "hash-alice", user.PasswordHash)
	require.True(t, user.CanShow)
	require.False(t, user.AgreeScreen)
	require.Nil(t, user.LastOnline)
	require.Nil(t, user.LastTyping)

	// Duplicate usernames are rejected by the unique constraint.
	_, err := s.CreateUser(ctx, "alice", "other")
	require.Error(t, err)

	missing, err := s.GetUserByUsername(ctx, "nobody")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestUserProfileUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, s, "alice")

	require.NoError(t, s.UpdatePassword(ctx, user.ID, "new-hash"))
	require.NoError(t, s.UpdateAvatar(ctx, user.ID, "/uploads/abc.png"))
	require.NoError(t, s.SetCanShow(ctx, user.ID, false))
	require.NoError(t, s.SetAgreeScreen(ctx, user.ID, true))

	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)
	require.Equal(t, "/uploads/abc.png", got.Avatar)
	require.False(t, got.CanShow)
	require.True(t, got.AgreeScreen)
}

func TestUserStatusTimestamps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, s, "alice")

	status, err := s.GetUserStatus(ctx, user.ID)
	require.NoError(t, err)
	require.Nil(t, status.LastOnline)
	require.Nil(t, status.LastTyping)

	require.NoError(t, s.TouchOnline(ctx, user.ID))
	status, err = s.GetUserStatus(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, status.LastOnline)
	require.Nil(t, status.LastTyping)

	require.NoError(t, s.TouchTyping(ctx, user.ID))
	status, err = s.GetUserStatus(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, status.LastTyping)
	require.Equal(t, user.ID, status.FromUserID)

	missing, err := s.GetUserStatus(ctx, 9999)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestSearchUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, s, "Alice")
	createTestUser(t, s, "alicia")
	bob := createTestUser(t, s, "bob")
	hidden := createTestUser(t, s, "alistair")
	require.NoError(t, s.SetCanShow(ctx, hidden.ID, false))

	// Case-insensitive substring match, excluding the caller and
	// anyone who opted out of discovery.
	results, err := s.SearchUsers(ctx, "ali", bob.ID, 20)
	require.NoError(t, err)
	names := make([]string, 0, len(results))
	for _, u := range results {
		names = append(names, u.Username)
	}
	require.ElementsMatch(t, []string{"Alice", "alicia"}, names)

	// The searching user never appears in their own results.
	results, err = s.SearchUsers(ctx, "ali", alice.ID, 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "alicia", results[0].Username)
}

func TestMessageReplyJoin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	firstID, err := s.CreateMessage(ctx, alice.ID, bob.ID, "original", nil)
	require.NoError(t, err)

	first, err := s.GetMessageWithReply(ctx, firstID)
	require.NoError(t, err)
	require.Equal(t, "original", first.Content)
	require.Nil(t, first.ReplyTo)
	require.Nil(t, first.ReplyText)
	require.Nil(t, first.ReplyUserName)
	require.False(t, first.Edited)
	require.False(t, first.Read)

	replyID, err := s.CreateMessage(ctx, bob.ID, alice.ID, "a reply", &firstID)
	require.NoError(t, err)

	reply, err := s.GetMessageWithReply(ctx, replyID)
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	require.Equal(t, firstID, *reply.ReplyTo)
	require.NotNil(t, reply.ReplyText)
	require.Equal(t, "original", *reply.ReplyText)
	require.NotNil(t, reply.ReplyUserName)
	require.Equal(t, "alice", *reply.ReplyUserName)

	// Deleting the target leaves the reference dangling; the preview
	// degrades to null instead of failing.
	deleted, err := s.DeleteMessage(ctx, firstID, alice.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	reply, err = s.GetMessageWithReply(ctx, replyID)
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	require.Nil(t, reply.ReplyText)
	require.Nil(t, reply.ReplyUserName)

	missing, err := s.GetMessageWithReply(ctx, firstID)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestDeleteMessageParticipantsOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")
	eve := createTestUser(t, s, "eve")

	id, err := s.CreateMessage(ctx, alice.ID, bob.ID, "hi", nil)
	require.NoError(t, err)

	// An outsider matches zero rows and cannot tell the message exists.
	deleted, err := s.DeleteMessage(ctx, id, eve.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	// The receiver may delete too, not just the sender.
	deleted, err = s.DeleteMessage(ctx, id, bob.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = s.DeleteMessage(ctx, id, alice.ID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestEditMessageSenderOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	id, err := s.CreateMessage(ctx, alice.ID, bob.ID, "tpyo", nil)
	require.NoError(t, err)

	msg, err := s.EditMessage(ctx, id, bob.ID, "hijacked")
	require.NoError(t, err)
	require.Nil(t, msg)

	got, err := s.GetMessageWithReply(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "tpyo", got.Content)
	require.False(t, got.Edited)

	msg, err = s.EditMessage(ctx, id, alice.ID, "typo")
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.Equal(t, "typo", msg.Content)
	require.True(t, msg.Edited)
}

func TestMarkReadReceiverOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	id, err := s.CreateMessage(ctx, alice.ID, bob.ID, "hi", nil)
	require.NoError(t, err)

	// The sender cannot mark their own message read.
	marked, err := s.MarkRead(ctx, id, alice.ID)
	require.NoError(t, err)
	require.False(t, marked)

	marked, err = s.MarkRead(ctx, id, bob.ID)
	require.NoError(t, err)
	require.True(t, marked)

	got, err := s.GetMessageWithReply(ctx, id)
	require.NoError(t, err)
	require.True(t, got.Read)
}

func TestListMessagesPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")
	eve := createTestUser(t, s, "eve")

	contents := []string{"one", "two", "three", "four", "five"}
	for i, content := range contents {
		sender, receiver := alice.ID, bob.ID
		if i%2 == 1 {
			sender, receiver = bob.ID, alice.ID
		}
		_, err := s.CreateMessage(ctx, sender, receiver, content, nil)
		require.NoError(t, err)
	}
	// Noise from an unrelated conversation must not leak in.
	_, err := s.CreateMessage(ctx, alice.ID, eve.ID, "noise", nil)
	require.NoError(t, err)

	var collected []string
	for offset := 0; ; offset += 2 {
		page, err := s.ListMessages(ctx, alice.ID, bob.ID, offset, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, m := range page {
			collected = append(collected, m.Content)
		}
	}
	// Newest first, disjoint and contiguous across pages.
	require.Equal(t, []string{"five", "four", "three", "two", "one"}, collected)
}

func TestListDialogsLatestPerCounterpart(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")
	carol := createTestUser(t, s, "carol")
	createTestUser(t, s, "mallory") // never messaged

	_, err := s.CreateMessage(ctx, alice.ID, bob.ID, "hi bob", nil)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = s.CreateMessage(ctx, carol.ID, alice.ID, "hi alice", nil)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = s.CreateMessage(ctx, bob.ID, alice.ID, "hi back", nil)
	require.NoError(t, err)

	dialogs, err := s.ListDialogs(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, dialogs, 2)

	// One entry per counterpart, most recently active first, each
	// carrying the latest message of that conversation.
	require.Equal(t, bob.ID, dialogs[0].UserID)
	require.Equal(t, "hi back", dialogs[0].Content)
	require.Equal(t, bob.ID, dialogs[0].SenderID)
	require.Equal(t, carol.ID, dialogs[1].UserID)
	require.Equal(t, "hi alice", dialogs[1].Content)

	// A user with no history has no dialogs.
	none, err := s.ListDialogs(ctx, 9999)
	require.NoError(t, err)
	require.Empty(t, none)
}
