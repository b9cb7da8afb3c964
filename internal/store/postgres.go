package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Smeruxa/STalk-Messenger/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUser creates a new user record.
func (s *PostgresStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, password)
		VALUES ($1, $2)
		RETURNING id, username, password, avatar, can_show, agree_screen, last_online, last_typing
	`, username, passwordHash).Scan(
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
		return nil, err
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, `WHERE username = $1`, username)
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// UpdatePassword replaces a user's password hash.
func (s *PostgresStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET password = $1 WHERE id = $2`, passwordHash, id)
	return err
}

// UpdateAvatar stores the avatar path for a user.
func (s *PostgresStore) UpdateAvatar(ctx context.Context, id int64, avatarPath string) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET avatar = $1 WHERE id = $2`, avatarPath, id)
	return err
}

// SetCanShow toggles whether the user appears in search results.
func (s *PostgresStore) SetCanShow(ctx context.Context, id int64, canShow bool) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET can_show = $1 WHERE id = $2`, canShow, id)
	return err
}

// SetAgreeScreen toggles the user's screenshot consent flag.
func (s *PostgresStore) SetAgreeScreen(ctx context.Context, id int64, agree bool) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET agree_screen = $1 WHERE id = $2`, agree, id)
	return err
}

// TouchTyping updates the typing and online timestamps.
func (s *PostgresStore) TouchTyping(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET last_typing = NOW(), last_online = NOW() WHERE id = $1`, id)
	return err
}

// TouchOnline updates the online timestamp.
func (s *PostgresStore) TouchOnline(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET last_online = NOW() WHERE id = $1`, id)
	return err
}

// GetUserStatus retrieves the presence timestamps for a user.
func (s *PostgresStore) GetUserStatus(ctx context.Context, id int64) (*models.UserStatus, error) {
	status := &models.UserStatus{FromUserID: id}
	err := s.pool.QueryRow(ctx, `
		SELECT last_online, last_typing FROM users WHERE id = $1
	`, id).Scan(&status.LastOnline, &status.LastTyping)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return status, nil
}

// SearchUsers finds discoverable users by case-insensitive substring match,
// excluding the searching user.
func (s *PostgresStore) SearchUsers(ctx context.Context, query string, excludeID int64, limit int) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username FROM users
		WHERE can_show = TRUE AND username ILIKE $1 AND id != $2
		LIMIT $3
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
func (s *PostgresStore) CreateMessage(ctx context.Context, senderID, receiverID int64, content string, replyTo *int64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (sender_id, receiver_id, content, created_at, reply_to)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, senderID, receiverID, content, time.Now().UTC(), replyTo).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

const pgMessageWithReplySelect = `
	SELECT m.id, m.sender_id, m.receiver_id, m.content, m.created_at, m.reply_to, m.edited, m.read,
	       r.content AS reply_text, u.username AS reply_user_name
	FROM messages m
	LEFT JOIN messages r ON m.reply_to = r.id
	LEFT JOIN users u ON r.sender_id = u.id`

// GetMessageWithReply retrieves a message joined with its reply preview.
func (s *PostgresStore) GetMessageWithReply(ctx context.Context, id int64) (*models.Message, error) {
	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, pgMessageWithReplySelect+` WHERE m.id = $1`, id).Scan(
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
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// ListDialogs returns one entry per counterpart the user has exchanged
// messages with, carrying the most recent message, newest first.
func (s *PostgresStore) ListDialogs(ctx context.Context, userID int64) ([]models.Dialog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.username, u.avatar, u.agree_screen, m.content, m.created_at, m.sender_id
		FROM users u
		JOIN LATERAL (
			SELECT content, created_at, sender_id
			FROM messages
			WHERE (sender_id = $1 AND receiver_id = u.id) OR (sender_id = u.id AND receiver_id = $1)
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) m ON TRUE
		WHERE u.id != $1
		ORDER BY m.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDialogs(rows)
}

func scanDialogs(rows pgx.Rows) ([]models.Dialog, error) {
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
func (s *PostgresStore) ListMessages(ctx context.Context, userID, withUserID int64, offset, limit int) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, pgMessageWithReplySelect+`
		WHERE (m.sender_id = $1 AND m.receiver_id = $2) OR (m.sender_id = $2 AND m.receiver_id = $1)
		ORDER BY m.created_at DESC, m.id DESC
		OFFSET $3 LIMIT $4
	`, userID, withUserID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
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
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteMessage deletes a message if the caller participates in it.
// Returns false when nothing matched.
func (s *PostgresStore) DeleteMessage(ctx context.Context, id, participantID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM messages WHERE id = $1 AND (sender_id = $2 OR receiver_id = $2)
	`, id, participantID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// EditMessage updates a message's content if the caller is its sender.
// Returns nil when nothing matched.
func (s *PostgresStore) EditMessage(ctx context.Context, id, senderID int64, content string) (*models.Message, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET content = $1, edited = TRUE WHERE id = $2 AND sender_id = $3
	`, content, id, senderID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return s.GetMessageWithReply(ctx, id)
}

// MarkRead sets the read flag if the caller is the message's receiver.
func (s *PostgresStore) MarkRead(ctx context.Context, id, receiverID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET read = TRUE WHERE id = $1 AND receiver_id = $2
	`, id, receiverID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
