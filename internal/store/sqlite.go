package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Smeruxa/STalk-Messenger/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/stalk.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/stalk.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		avatar TEXT NOT NULL DEFAULT '',
		can_show INTEGER NOT NULL DEFAULT 1,
		agree_screen INTEGER NOT NULL DEFAULT 0,
		last_online TIMESTAMP,
		last_typing TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER NOT NULL,
		receiver_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		reply_to INTEGER,
		edited INTEGER NOT NULL DEFAULT 0,
		read INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_messages_sender_receiver ON messages(sender_id, receiver_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_receiver_sender ON messages(receiver_id, sender_id, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password) VALUES (?, ?)
	`, username, passwordHash)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, `WHERE username = ?`, username)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password, avatar, can_show, agree_screen, last_online, last_typing
		FROM users `+where,
		arg,
	).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Avatar,
		&user.CanShow,
		&user.AgreeScreen,
		&user.LastOnline,
		&user.LastTyping,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// UpdatePassword replaces a user's password hash.
func (s *SQLiteStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, passwordHash, id)
	return err
}

// UpdateAvatar stores the avatar path for a user.
func (s *SQLiteStore) UpdateAvatar(ctx context.Context, id int64, avatarPath string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET avatar = ? WHERE id = ?`, avatarPath, id)
	return err
}

// SetCanShow toggles whether the user appears in search results.
func (s *SQLiteStore) SetCanShow(ctx context.Context, id int64, canShow bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET can_show = ? WHERE id = ?`, canShow, id)
	return err
}

// SetAgreeScreen toggles the user's screenshot consent flag.
func (s *SQLiteStore) SetAgreeScreen(ctx context.Context, id int64, agree bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET agree_screen = ? WHERE id = ?`, agree, id)
	return err
}

// TouchTyping updates the typing and online timestamps.
func (s *SQLiteStore) TouchTyping(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_typing = ?, last_online = ? WHERE id = ?`, now, now, id)
	return err
}

// TouchOnline updates the online timestamp.
func (s *SQLiteStore) TouchOnline(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_online = ? WHERE id = ?`, time.Now().UTC(), id)
	return err
}

// GetUserStatus retrieves the presence timestamps for a user.
func (s *SQLiteStore) GetUserStatus(ctx context.Context, id int64) (*models.UserStatus, error) {
	status := &models.UserStatus{FromUserID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT last_online, last_typing FROM users WHERE id = ?
	`, id).Scan(&status.LastOnline, &status.LastTyping)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return status, nil
}

// SearchUsers finds discoverable users by case-insensitive substring match,
// excluding the searching user.
func (s *SQLiteStore) SearchUsers(ctx context.Context, query string, excludeID int64, limit int) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username FROM users
		WHERE can_show = 1 AND username LIKE ? COLLATE NOCASE AND id != ?
		LIMIT ?
	`, "%"+query+"%", excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateMessage inserts a message row and returns its assigned id.
func (s *SQLiteStore) CreateMessage(ctx context.Context, senderID, receiverID int64, content string, replyTo *int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, receiver_id, content, created_at, reply_to)
		VALUES (?, ?, ?, ?, ?)
	`, senderID, receiverID, content, time.Now().UTC(), replyTo)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const sqliteMessageWithReplySelect = `
	SELECT m.id, m.sender_id, m.receiver_id, m.content, m.created_at, m.reply_to, m.edited, m.read,
	       r.content AS reply_text, u.username AS reply_user_name
	FROM messages m
	LEFT JOIN messages r ON m.reply_to = r.id
	LEFT JOIN users u ON r.sender_id = u.id`

func scanMessage(row interface{ Scan(...any) error }, msg *models.Message) error {
	return row.Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.Content,
		&msg.CreatedAt,
		&msg.ReplyTo,
		&msg.Edited,
		&msg.Read,
		&msg.ReplyText,
		&msg.ReplyUserName,
	)
}

// GetMessageWithReply retrieves a message joined with its reply preview.
func (s *SQLiteStore) GetMessageWithReply(ctx context.Context, id int64) (*models.Message, error) {
	msg := &models.Message{}
	err := scanMessage(s.db.QueryRowContext(ctx, sqliteMessageWithReplySelect+` WHERE m.id = ?`, id), msg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// ListDialogs returns one entry per counterpart the user has exchanged
// messages with, carrying the most recent message, newest first.
// SQLite has no LATERAL join, so the latest message is picked via a
// correlated subquery on the message id.
func (s *SQLiteStore) ListDialogs(ctx context.Context, userID int64) ([]models.Dialog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.avatar, u.agree_screen, m.content, m.created_at, m.sender_id
		FROM users u
		JOIN messages m ON m.id = (
			SELECT id FROM messages
			WHERE (sender_id = ? AND receiver_id = u.id) OR (sender_id = u.id AND receiver_id = ?)
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
		WHERE u.id != ?
		ORDER BY m.created_at DESC
	`, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dialogs []models.Dialog
	for rows.Next() {
		var d models.Dialog
		if err := rows.Scan(&d.UserID, &d.Username, &d.Avatar, &d.AgreeScreen, &d.Content, &d.CreatedAt, &d.SenderID); err != nil {
			return nil, err
		}
		dialogs = append(dialogs, d)
	}
	return dialogs, rows.Err()
}

// ListMessages returns a page of the conversation between two users in
// time-descending order.
func (s *SQLiteStore) ListMessages(ctx context.Context, userID, withUserID int64, offset, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, sqliteMessageWithReplySelect+`
		WHERE (m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?)
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ? OFFSET ?
	`, userID, withUserID, withUserID, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := scanMessage(rows, &msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteMessage deletes a message if the caller participates in it.
// Returns false when nothing matched.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id, participantID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM messages WHERE id = ? AND (sender_id = ? OR receiver_id = ?)
	`, id, participantID, participantID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EditMessage updates a message's content if the caller is its sender.
// Returns nil when nothing matched.
func (s *SQLiteStore) EditMessage(ctx context.Context, id, senderID int64, content string) (*models.Message, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET content = ?, edited = 1 WHERE id = ? AND sender_id = ?
	`, content, id, senderID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetMessageWithReply(ctx, id)
}

// MarkRead sets the read flag if the caller is the message's receiver.
func (s *SQLiteStore) MarkRead(ctx context.Context, id, receiverID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET read = 1 WHERE id = ? AND receiver_id = ?
	`, id, receiverID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
