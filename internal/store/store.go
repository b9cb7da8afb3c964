package store

import (
	"context"

	"github.com/Smeruxa/STalk-Messenger/internal/models"
)

// DataStore defines the interface for persistent storage of users and messages.
// Both PostgresStore and SQLiteStore implement this interface.
//
// Delete/edit/read operations authorize through their WHERE predicates: a call
// by a non-owner/non-participant matches zero rows and reports a no-op, so
// callers cannot distinguish "not found" from "not yours".
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateAvatar(ctx context.Context, id int64, avatarPath string) error
	SetCanShow(ctx context.Context, id int64, canShow bool) error
	SetAgreeScreen(ctx context.Context, id int64, agree bool) error
	TouchTyping(ctx context.Context, id int64) error
	TouchOnline(ctx context.Context, id int64) error
	GetUserStatus(ctx context.Context, id int64) (*models.UserStatus, error)
	SearchUsers(ctx context.Context, query string, excludeID int64, limit int) ([]models.User, error)

	// Message operations
	CreateMessage(ctx context.Context, senderID, receiverID int64, content string, replyTo *int64) (int64, error)
	GetMessageWithReply(ctx context.Context, id int64) (*models.Message, error)
	ListDialogs(ctx context.Context, userID int64) ([]models.Dialog, error)
	ListMessages(ctx context.Context, userID, withUserID int64, offset, limit int) ([]models.Message, error)
	DeleteMessage(ctx context.Context, id, participantID int64) (bool, error)
	EditMessage(ctx context.Context, id, senderID int64, content string) (*models.Message, error)
	MarkRead(ctx context.Context, id, receiverID int64) (bool, error)
}
